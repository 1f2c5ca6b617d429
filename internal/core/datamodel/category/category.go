package category

import "time"

type TicketCategory struct {
	ID            int64     `gorm:"primaryKey"`
	Name          string    `gorm:"column:name;uniqueIndex;not null"`
	Description   string    `gorm:"column:description"`
	IsFuel        bool      `gorm:"column:is_fuel;default:false"`
	RequiresPhoto bool      `gorm:"column:requires_photo;default:false"`
	IsActive      bool      `gorm:"column:is_active"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (TicketCategory) TableName() string {
	return "ticket_categories"
}
