package role

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/metrics"
)

type RepositoryAPI interface {
	Get(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Upsert(ctx context.Context, r *Role) error
	Delete(ctx context.Context, name string) (bool, error)
}

// Registry is the process-wide view of stored roles. Reads go through an LRU
// cache; writes invalidate the affected entry before they return.
type Registry struct {
	repo   RepositoryAPI
	cache  *lru.Cache[string, *Role]
	logger *slog.Logger

	// held for writing across a store write and its invalidation so a
	// concurrent miss cannot repopulate the cache with the old value
	mu sync.RWMutex
}

func NewRegistry(repo RepositoryAPI, cacheSize int, logger *slog.Logger) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, *Role](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create role cache: %w", err)
	}
	return &Registry{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}, nil
}

func (r *Registry) Canonicalize(raw string) string {
	return Canonicalize(raw)
}

// Get returns the role stored under the canonical form of name, or
// ErrRoleNotFound.
func (r *Registry) Get(ctx context.Context, name string) (*Role, error) {
	key := Canonicalize(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cached, ok := r.cache.Get(key); ok {
		metrics.RoleCacheLookupsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.RoleCacheLookupsTotal.WithLabelValues("miss").Inc()

	stored, err := r.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, stored)
	return stored, nil
}

func (r *Registry) List(ctx context.Context) ([]*Role, error) {
	return r.repo.List(ctx)
}

// Upsert creates the role or replaces its permission set wholesale.
func (r *Registry) Upsert(ctx context.Context, name string, permissions []string) (*Role, error) {
	key := Canonicalize(name)
	if key == "" {
		return nil, apperrors.NewValidationFieldError("name", "role name is required", apperrors.ErrCodeValidationFailed)
	}
	perms, err := NormalizePermissions(permissions)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	updated := &Role{Name: key, Permissions: perms}
	if err := r.repo.Upsert(ctx, updated); err != nil {
		r.logger.ErrorContext(ctx, "failed to upsert role", "role", key, "error", err)
		return nil, err
	}
	r.cache.Remove(key)

	r.logger.InfoContext(ctx, "role upserted", "role", key, "permissions", perms)
	return updated, nil
}

// Delete removes the role. It reports false, not an error, for unknown names.
func (r *Registry) Delete(ctx context.Context, name string) (bool, error) {
	key := Canonicalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, err := r.repo.Delete(ctx, key)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete role", "role", key, "error", err)
		return false, err
	}
	r.cache.Remove(key)

	if deleted {
		r.logger.InfoContext(ctx, "role deleted", "role", key)
	}
	return deleted, nil
}

// EnsureBaseline upserts the baseline roles. Safe to run on every start.
func (r *Registry) EnsureBaseline(ctx context.Context) error {
	for _, b := range Baseline() {
		if _, err := r.Upsert(ctx, b.Name, b.Permissions); err != nil {
			return fmt.Errorf("ensure baseline role %s: %w", b.Name, err)
		}
	}
	return nil
}
