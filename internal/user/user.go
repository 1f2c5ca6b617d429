package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/user"
)

type User struct {
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	EmployeeCode string    `json:"employee_code,omitempty"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // Never expose password hash
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmployeeCode: u.EmployeeCode,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmployeeCode: u.EmployeeCode,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
