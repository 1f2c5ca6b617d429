package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	expenseDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tickets/internal/expense"
)

// mutableColumns are written back by Mutate. id, created_by and created_at
// never change after insert.
var mutableColumns = []string{
	"amount", "categories", "kilometers", "price_per_km", "description", "project",
	"expense_date", "attachment_path", "validated", "validated_by", "paid", "paid_by",
	"rejected", "rejected_by", "rejection_reason", "version", "updated_at",
}

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	row := expense.ToDataModel(e)
	if row.Version == 0 {
		row.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	e.ID = row.ID
	e.Version = row.Version
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrTicketNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&row), nil
}

// List returns tickets newest first. The status filter is expressed on the
// flags with the same priority DeriveStatus applies.
func (r *ExpenseRepository) List(ctx context.Context, f expense.Filter) ([]*expense.Expense, error) {
	q := r.db.WithContext(ctx).Model(&expenseDatamodel.Ticket{})
	if f.CreatedBy != "" {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.Project != "" {
		q = q.Where("project = ?", f.Project)
	}
	switch f.Status {
	case expense.StatusRejected:
		q = q.Where("rejected = ?", true)
	case expense.StatusPaid:
		q = q.Where("rejected = ? AND paid = ?", false, true)
	case expense.StatusValidated:
		q = q.Where("rejected = ? AND paid = ? AND validated = ?", false, false, true)
	case expense.StatusPending:
		q = q.Where("rejected = ? AND paid = ? AND validated = ?", false, false, false)
	}

	var rows []*expenseDatamodel.Ticket
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

func (r *ExpenseRepository) Mutate(ctx context.Context, id int64, fn func(current *expense.Expense) (*expense.Expense, error)) (*expense.Expense, error) {
	var result *expense.Expense
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockTicket(tx, id)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		row := expense.ToDataModel(next)
		row.ID = current.ID
		row.CreatedBy = current.CreatedBy
		row.CreatedAt = current.CreatedAt
		row.Version = current.Version + 1

		res := tx.Model(&expenseDatamodel.Ticket{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Select(mutableColumns).
			Updates(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return expense.ErrConcurrentUpdate
		}

		result = expense.FromDataModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ExpenseRepository) DeleteIf(ctx context.Context, id int64, check func(current *expense.Expense) error) (*expense.Expense, error) {
	var deleted *expense.Expense
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockTicket(tx, id)
		if err != nil {
			return err
		}
		if err := check(current); err != nil {
			return err
		}

		res := tx.Where("id = ? AND version = ?", current.ID, current.Version).Delete(&expenseDatamodel.Ticket{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return expense.ErrConcurrentUpdate
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// AttachmentPaths returns every attachment path still referenced by a ticket.
func (r *ExpenseRepository) AttachmentPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Model(&expenseDatamodel.Ticket{}).
		Where("attachment_path IS NOT NULL AND attachment_path <> ''").
		Pluck("attachment_path", &paths).Error
	return paths, err
}

func lockTicket(tx *gorm.DB, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Ticket
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrTicketNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&row), nil
}
