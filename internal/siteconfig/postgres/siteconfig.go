package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	siteconfigDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/siteconfig"
	"github.com/frahmantamala/expense-tickets/internal/siteconfig"
)

type SiteConfigRepository struct {
	db *gorm.DB
}

func NewSiteConfigRepository(db *gorm.DB) siteconfig.RepositoryAPI {
	return &SiteConfigRepository{db: db}
}

func (r *SiteConfigRepository) All(ctx context.Context) ([]siteconfig.Setting, error) {
	var rows []*siteconfigDatamodel.Setting
	if err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]siteconfig.Setting, len(rows))
	for i, row := range rows {
		out[i] = siteconfig.FromDataModel(row)
	}
	return out, nil
}

func (r *SiteConfigRepository) Upsert(ctx context.Context, settings []siteconfig.Setting) error {
	return r.write(ctx, settings, clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	})
}

func (r *SiteConfigRepository) InsertMissing(ctx context.Context, settings []siteconfig.Setting) error {
	return r.write(ctx, settings, clause.OnConflict{DoNothing: true})
}

func (r *SiteConfigRepository) write(ctx context.Context, settings []siteconfig.Setting, onConflict clause.OnConflict) error {
	if len(settings) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]*siteconfigDatamodel.Setting, len(settings))
	for i, s := range settings {
		rows[i] = siteconfig.ToDataModel(s)
		rows[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).Clauses(onConflict).Create(&rows).Error
}
