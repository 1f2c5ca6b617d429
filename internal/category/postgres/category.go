package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tickets/internal/category"
	categoryDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/category"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]*categoryDatamodel.TicketCategory, error) {
	var categories []*categoryDatamodel.TicketCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// GetByName returns nil, nil when no category has that name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*categoryDatamodel.TicketCategory, error) {
	var cat categoryDatamodel.TicketCategory
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.TicketCategory) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *CategoryRepository) Update(ctx context.Context, cat *categoryDatamodel.TicketCategory) error {
	return r.db.WithContext(ctx).Save(cat).Error
}
