package expense

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Ticket struct {
	ID              int64                       `gorm:"primaryKey"`
	CreatedBy       string                      `gorm:"column:created_by;not null;index"`
	Amount          decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Categories      datatypes.JSONSlice[string] `gorm:"column:categories;not null"`
	Kilometers      decimal.NullDecimal         `gorm:"column:kilometers;type:numeric(10,2)"`
	PricePerKm      decimal.NullDecimal         `gorm:"column:price_per_km;type:numeric(10,4)"`
	Description     string                      `gorm:"column:description"`
	Project         string                      `gorm:"column:project;index"`
	ExpenseDate     time.Time                   `gorm:"column:expense_date;type:date"`
	AttachmentPath  *string                     `gorm:"column:attachment_path"`
	Validated       bool                        `gorm:"column:validated;not null;default:false"`
	ValidatedBy     *string                     `gorm:"column:validated_by"`
	Paid            bool                        `gorm:"column:paid;not null;default:false"`
	PaidBy          *string                     `gorm:"column:paid_by"`
	Rejected        bool                        `gorm:"column:rejected;not null;default:false"`
	RejectedBy      *string                     `gorm:"column:rejected_by"`
	RejectionReason *string                     `gorm:"column:rejection_reason"`
	Version         int64                       `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Ticket) TableName() string {
	return "tickets"
}
