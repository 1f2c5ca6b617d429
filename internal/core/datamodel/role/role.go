package role

import (
	"time"

	"gorm.io/datatypes"
)

type Role struct {
	Name        string                      `gorm:"column:name;primaryKey"`
	Permissions datatypes.JSONSlice[string] `gorm:"column:permissions;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}
