package auth

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/expense-tickets/internal/metrics"
)

// Revoker remembers logged-out token ids until the token would have expired
// anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedKeyPrefix = "auth:revoked:"

type RedisRevoker struct {
	client redis.UniversalClient
}

func NewRedisRevoker(client redis.UniversalClient) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevoker keeps revocations in process. Entries live for ttl, which
// should be at least the session lifetime. Revocations do not survive a
// restart and are not shared between replicas.
//
// The store holds at most size entries. Once full, the oldest revocation is
// evicted and that token is accepted again until it expires; every such
// eviction is logged and counted.
type MemoryRevoker struct {
	revoked *expirable.LRU[string, time.Time]
	now     func() time.Time
	logger  *slog.Logger
	evicted atomic.Uint64
}

func NewMemoryRevoker(size int, ttl time.Duration, logger *slog.Logger) *MemoryRevoker {
	if size <= 0 {
		size = 10000
	}
	m := &MemoryRevoker{
		now:    time.Now,
		logger: logger,
	}
	m.revoked = expirable.NewLRU[string, time.Time](size, m.onEvict, ttl)
	return m
}

// onEvict also fires for entries that simply expired; only those whose token
// is still live count as evictions.
func (m *MemoryRevoker) onEvict(tokenID string, until time.Time) {
	if !until.After(m.now()) {
		return
	}
	m.evicted.Add(1)
	metrics.RevocationEvictionsTotal.Inc()
	m.logger.Warn("revocation store full, evicted a live revocation",
		"token_id", tokenID,
		"valid_until", until)
}

// Evicted reports how many live revocations were dropped for capacity.
func (m *MemoryRevoker) Evicted() uint64 {
	return m.evicted.Load()
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" || !until.After(m.now()) {
		return nil
	}
	m.revoked.Add(tokenID, until)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return m.revoked.Contains(tokenID), nil
}
