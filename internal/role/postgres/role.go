package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	roleDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/role"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Get(ctx context.Context, name string) (*role.Role, error) {
	var row roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, role.ErrRoleNotFound
		}
		return nil, err
	}
	return role.FromDataModel(&row), nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*role.Role, error) {
	var rows []*roleDatamodel.Role
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make([]*role.Role, len(rows))
	for i, row := range rows {
		roles[i] = role.FromDataModel(row)
	}
	return roles, nil
}

// Upsert inserts the role or overwrites its permissions.
func (r *RoleRepository) Upsert(ctx context.Context, rl *role.Role) error {
	now := time.Now()
	row := role.ToDataModel(rl)
	row.CreatedAt = now
	row.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return err
	}
	rl.UpdatedAt = now
	if rl.CreatedAt.IsZero() {
		rl.CreatedAt = now
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, name string) (bool, error) {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&roleDatamodel.Role{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
