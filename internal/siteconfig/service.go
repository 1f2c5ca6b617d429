package siteconfig

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/core/common/validation"
)

type RepositoryAPI interface {
	All(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, settings []Setting) error
	InsertMissing(ctx context.Context, settings []Setting) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// All returns every known setting, stored values overriding the defaults.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	values := Defaults()
	for _, st := range stored {
		if _, known := values[st.Key]; known {
			values[st.Key] = st.Value
		}
	}
	return values, nil
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	values, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", apperrors.NewValidationFieldError(key, "unknown setting", apperrors.ErrCodeUnknownConfigKey)
	}
	return v, nil
}

// Set validates and stores every entry of updates in one write. Nothing is
// stored if any entry is invalid.
func (s *Service) Set(ctx context.Context, updates map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := validation.NewBuilder()
	settings := make([]Setting, 0, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(updates[k])
		if err := Validate(k, v); err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok {
				b.Merge(appErr)
			}
			continue
		}
		settings = append(settings, Setting{Key: k, Value: v})
	}
	if verr := b.Err(); verr != nil {
		return nil, verr
	}

	if len(settings) > 0 {
		if err := s.repo.Upsert(ctx, settings); err != nil {
			s.logger.ErrorContext(ctx, "failed to store site config", "error", err)
			return nil, err
		}
		s.logger.InfoContext(ctx, "site config updated", "keys", keys)
	}
	return s.All(ctx)
}

// EnsureDefaults stores the default of every setting that has no row yet.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	d := Defaults()
	settings := make([]Setting, 0, len(d))
	for k, v := range d {
		settings = append(settings, Setting{Key: k, Value: v})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return s.repo.InsertMissing(ctx, settings)
}
