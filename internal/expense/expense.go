package expense

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	expenseDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/expense"
)

// Status is derived from the validated, paid and rejected flags. It is never
// stored.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusPaid      Status = "paid"
	StatusRejected  Status = "rejected"
)

var (
	ErrTicketNotFound   = apperrors.ErrTicketNotFound
	ErrInvalidState     = apperrors.ErrInvalidState
	ErrMissingReason    = apperrors.ErrMissingReason
	ErrUnknownAction    = apperrors.ErrUnknownAction
	ErrConcurrentUpdate = apperrors.ErrConcurrentUpdate
)

// DeriveStatus orders the flags rejected > paid > validated > pending.
func DeriveStatus(validated, paid, rejected bool) Status {
	switch {
	case rejected:
		return StatusRejected
	case paid:
		return StatusPaid
	case validated:
		return StatusValidated
	default:
		return StatusPending
	}
}

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusPending, StatusValidated, StatusPaid, StatusRejected:
		return s, true
	}
	return "", false
}

// Expense is one expense ticket.
type Expense struct {
	ID              int64               `json:"id"`
	CreatedBy       string              `json:"created_by"`
	Amount          decimal.Decimal     `json:"amount"`
	Categories      []string            `json:"categories"`
	Kilometers      decimal.NullDecimal `json:"kilometers"`
	PricePerKm      decimal.NullDecimal `json:"price_per_km"`
	Description     string              `json:"description"`
	Project         string              `json:"project"`
	ExpenseDate     time.Time           `json:"expense_date"`
	AttachmentPath  *string             `json:"attachment_path,omitempty"`
	Validated       bool                `json:"validated"`
	ValidatedBy     *string             `json:"validated_by"`
	Paid            bool                `json:"paid"`
	PaidBy          *string             `json:"paid_by"`
	Rejected        bool                `json:"rejected"`
	RejectedBy      *string             `json:"rejected_by"`
	RejectionReason *string             `json:"rejection_reason"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (e *Expense) Status() Status {
	return DeriveStatus(e.Validated, e.Paid, e.Rejected)
}

func (e *Expense) IsOwnedBy(subject string) bool {
	return e.CreatedBy == subject
}

func (e *Expense) IsPending() bool {
	return e.Status() == StatusPending
}

// Clone returns a deep copy so that a failed action never touches the
// original record.
func (e *Expense) Clone() *Expense {
	cp := *e
	cp.Categories = append([]string(nil), e.Categories...)
	cp.AttachmentPath = clonePtr(e.AttachmentPath)
	cp.ValidatedBy = clonePtr(e.ValidatedBy)
	cp.PaidBy = clonePtr(e.PaidBy)
	cp.RejectedBy = clonePtr(e.RejectedBy)
	cp.RejectionReason = clonePtr(e.RejectionReason)
	return &cp
}

// MarshalJSON adds the derived status to the payload.
func (e Expense) MarshalJSON() ([]byte, error) {
	type plain Expense
	return json.Marshal(struct {
		plain
		Status Status `json:"status"`
	}{
		plain:  plain(e),
		Status: e.Status(),
	})
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func strPtr(s string) *string {
	return &s
}

func ToDataModel(e *Expense) *expenseDatamodel.Ticket {
	return &expenseDatamodel.Ticket{
		ID:              e.ID,
		CreatedBy:       e.CreatedBy,
		Amount:          e.Amount,
		Categories:      datatypes.JSONSlice[string](append([]string(nil), e.Categories...)),
		Kilometers:      e.Kilometers,
		PricePerKm:      e.PricePerKm,
		Description:     e.Description,
		Project:         e.Project,
		ExpenseDate:     e.ExpenseDate,
		AttachmentPath:  e.AttachmentPath,
		Validated:       e.Validated,
		ValidatedBy:     e.ValidatedBy,
		Paid:            e.Paid,
		PaidBy:          e.PaidBy,
		Rejected:        e.Rejected,
		RejectedBy:      e.RejectedBy,
		RejectionReason: e.RejectionReason,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModel(t *expenseDatamodel.Ticket) *Expense {
	return &Expense{
		ID:              t.ID,
		CreatedBy:       t.CreatedBy,
		Amount:          t.Amount,
		Categories:      append([]string(nil), t.Categories...),
		Kilometers:      t.Kilometers,
		PricePerKm:      t.PricePerKm,
		Description:     t.Description,
		Project:         t.Project,
		ExpenseDate:     t.ExpenseDate,
		AttachmentPath:  t.AttachmentPath,
		Validated:       t.Validated,
		ValidatedBy:     t.ValidatedBy,
		Paid:            t.Paid,
		PaidBy:          t.PaidBy,
		Rejected:        t.Rejected,
		RejectedBy:      t.RejectedBy,
		RejectionReason: t.RejectionReason,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*expenseDatamodel.Ticket) []*Expense {
	out := make([]*Expense, len(rows))
	for i, row := range rows {
		out[i] = FromDataModel(row)
	}
	return out
}
