package expense

import (
	"github.com/shopspring/decimal"
)

// CreateTicketDTO is the request body of POST /tickets. For fuel categories
// Amount is ignored and recomputed from Kilometers and PricePerKm.
type CreateTicketDTO struct {
	Amount         decimal.NullDecimal `json:"amount"`
	Categories     []string            `json:"categories" validate:"required,min=1,dive,required"`
	Kilometers     decimal.NullDecimal `json:"kilometers"`
	PricePerKm     decimal.NullDecimal `json:"price_per_km"`
	Description    string              `json:"description" validate:"max=1000"`
	Project        string              `json:"project" validate:"max=120"`
	ExpenseDate    string              `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	AttachmentPath *string             `json:"attachment_path,omitempty" validate:"omitempty,max=500"`
}

// UpdateTicketDTO carries the owner editable fields. Nil fields are left
// unchanged.
type UpdateTicketDTO struct {
	Amount         decimal.NullDecimal `json:"amount"`
	Categories     []string            `json:"categories,omitempty" validate:"omitempty,min=1,dive,required"`
	Kilometers     decimal.NullDecimal `json:"kilometers"`
	PricePerKm     decimal.NullDecimal `json:"price_per_km"`
	Description    *string             `json:"description,omitempty" validate:"omitempty,max=1000"`
	Project        *string             `json:"project,omitempty" validate:"omitempty,max=120"`
	ExpenseDate    *string             `json:"expense_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AttachmentPath *string             `json:"attachment_path,omitempty" validate:"omitempty,max=500"`
}

type ActionDTO struct {
	Action string `json:"action" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Filter narrows a ticket listing. Empty fields match everything.
type Filter struct {
	Status    Status
	CreatedBy string
	Project   string
}

type TicketsResponse struct {
	Tickets []*Expense `json:"tickets"`
}

type PendingAmountResponse struct {
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

type Stats struct {
	Pending   int64 `json:"pending" db:"pending"`
	Validated int64 `json:"validated" db:"validated"`
	Paid      int64 `json:"paid" db:"paid"`
	Rejected  int64 `json:"rejected" db:"rejected"`
	Total     int64 `json:"total" db:"total"`
}
