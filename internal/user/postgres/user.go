package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	userDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-tickets/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	var rows []*userDatamodel.User
	if err := r.db.WithContext(ctx).Order("email ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*user.User, len(rows))
	for i, row := range rows {
		users[i] = user.FromDataModel(row)
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userDatamodel.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrUserExists
		}

		row := user.ToDataModel(u)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		u.CreatedAt = row.CreatedAt
		u.UpdatedAt = row.UpdatedAt
		return nil
	})
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	row := user.ToDataModel(u)
	row.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("email = ?", u.Email).
		Select("first_name", "last_name", "employee_code", "role", "password_hash", "is_active", "updated_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, email string) (bool, error) {
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&userDatamodel.User{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
