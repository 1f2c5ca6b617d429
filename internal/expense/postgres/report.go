package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-tickets/internal/expense"
)

// ReportRepository runs the aggregate ticket queries directly over sqlx.
type ReportRepository struct {
	db          *sqlx.DB
	placeholder sq.PlaceholderFormat
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	var ph sq.PlaceholderFormat = sq.Dollar
	switch db.DriverName() {
	case "sqlite3", "sqlite":
		ph = sq.Question
	}
	return &ReportRepository{db: db, placeholder: ph}
}

func (r *ReportRepository) PendingAmount(ctx context.Context, createdBy string) (decimal.Decimal, int64, error) {
	query, args, err := sq.
		Select("COALESCE(SUM(amount), 0) AS amount", "COUNT(*) AS count").
		From("tickets").
		Where(sq.Eq{"created_by": createdBy, "paid": false, "rejected": false}).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return decimal.Zero, 0, err
	}

	var out struct {
		Amount decimal.Decimal `db:"amount"`
		Count  int64           `db:"count"`
	}
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		return decimal.Zero, 0, err
	}
	return out.Amount, out.Count, nil
}

// Stats counts tickets per derived status. An empty createdBy counts every
// ticket.
func (r *ReportRepository) Stats(ctx context.Context, createdBy string) (*expense.Stats, error) {
	builder := sq.
		Select(
			"COALESCE(SUM(CASE WHEN NOT rejected AND NOT paid AND NOT validated THEN 1 ELSE 0 END), 0) AS pending",
			"COALESCE(SUM(CASE WHEN NOT rejected AND NOT paid AND validated THEN 1 ELSE 0 END), 0) AS validated",
			"COALESCE(SUM(CASE WHEN NOT rejected AND paid THEN 1 ELSE 0 END), 0) AS paid",
			"COALESCE(SUM(CASE WHEN rejected THEN 1 ELSE 0 END), 0) AS rejected",
			"COUNT(*) AS total",
		).
		From("tickets").
		PlaceholderFormat(r.placeholder)
	if createdBy != "" {
		builder = builder.Where(sq.Eq{"created_by": createdBy})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var stats expense.Stats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, err
	}
	return &stats, nil
}
