package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	categoryDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*categoryDatamodel.TicketCategory, error)
	GetByName(ctx context.Context, name string) (*categoryDatamodel.TicketCategory, error)
	Create(ctx context.Context, category *categoryDatamodel.TicketCategory) error
	Update(ctx context.Context, category *categoryDatamodel.TicketCategory) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetAllCategories(ctx context.Context) ([]CategoryResponse, error) {
	dataCategories, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get categories from repository", "error", err)
		return nil, err
	}

	responses := make([]CategoryResponse, 0, len(dataCategories))
	for _, dataCategory := range dataCategories {
		domainCategory := FromDataModel(dataCategory)
		if domainCategory.IsActiveCategory() {
			responses = append(responses, domainCategory.ToResponse())
		}
	}

	s.logger.DebugContext(ctx, "retrieved categories", "count", len(responses))
	return responses, nil
}

// Resolve matches names case-insensitively against the active categories and
// reports whether the selection includes fuel or requires a photo. Names are
// returned in their stored spelling, deduplicated.
func (s *Service) Resolve(ctx context.Context, names []string) (*Selection, error) {
	if len(names) == 0 {
		return nil, apperrors.NewValidationFieldError("categories", "select at least one category", apperrors.ErrCodeInvalidCategory)
	}

	dataCategories, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]*Category, len(dataCategories))
	for _, dc := range dataCategories {
		if c := FromDataModel(dc); c.IsActiveCategory() {
			active[strings.ToLower(c.Name)] = c
		}
	}

	sel := &Selection{}
	seen := map[string]struct{}{}
	for _, raw := range names {
		c, ok := active[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			return nil, apperrors.NewValidationFieldError("categories", fmt.Sprintf("unknown category %q", raw), apperrors.ErrCodeInvalidCategory)
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		sel.Names = append(sel.Names, c.Name)
		sel.IsFuel = sel.IsFuel || c.IsFuel
		sel.RequiresPhoto = sel.RequiresPhoto || c.RequiresPhoto
	}
	return sel, nil
}

// EnsureDefaults creates the seeded categories that do not exist yet. Existing
// rows are left as an administrator configured them.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	for _, c := range Defaults() {
		existing, err := s.repo.GetByName(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("lookup category %s: %w", c.Name, err)
		}
		if existing != nil {
			continue
		}
		if err := s.repo.Create(ctx, ToDataModel(c)); err != nil {
			return fmt.Errorf("create category %s: %w", c.Name, err)
		}
		s.logger.InfoContext(ctx, "category created", "name", c.Name)
	}
	return nil
}
