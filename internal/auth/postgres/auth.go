package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	userDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/user"
)

// AccountRepository reads credentials and roles from the users table.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetAccount(ctx context.Context, email string) (*auth.Account, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("email", "first_name", "last_name", "role", "password_hash", "is_active").
		Where("email = ?", email).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	return &auth.Account{
		Email:        row.Email,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Role:         row.Role,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
	}, nil
}
