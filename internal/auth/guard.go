package auth

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/core/events"
	"github.com/frahmantamala/expense-tickets/internal/metrics"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

// Guard authenticates session tokens against the live user store and checks
// permission sets against the role registry.
type Guard struct {
	codec    *TokenCodec
	revoker  Revoker
	accounts AccountStore
	roles    RoleLookup
	audit    EventPublisher
	logger   *slog.Logger
}

func NewGuard(codec *TokenCodec, revoker Revoker, accounts AccountStore, roles RoleLookup, audit EventPublisher, logger *slog.Logger) *Guard {
	return &Guard{
		codec:    codec,
		revoker:  revoker,
		accounts: accounts,
		roles:    roles,
		audit:    audit,
		logger:   logger,
	}
}

// ResolveRole picks the live user role when it is set and falls back to the
// role claimed in the token. The result is canonical.
func ResolveRole(userRole, claimedRole string) string {
	if resolved := role.Canonicalize(userRole); resolved != "" {
		return resolved
	}
	return role.Canonicalize(claimedRole)
}

func (g *Guard) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.codec.Decode(token)
	if err != nil {
		return nil, ErrUnauthenticated.Wrap(err)
	}

	if g.revoker != nil {
		revoked, err := g.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			g.logger.ErrorContext(ctx, "revocation lookup failed", "error", err)
			return nil, apperrors.NewInternalError("session check failed", err)
		}
		if revoked {
			return nil, ErrUnauthenticated.WithMessage("session has been revoked")
		}
	}

	account, err := g.accounts.GetAccount(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, ErrUnauthenticated.Wrap(err)
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrUnauthenticated.Wrap(ErrUserInactive)
	}

	return &Identity{
		Subject:       account.Email,
		EffectiveRole: ResolveRole(account.Role, claims.ClaimedRole()),
		ClaimedRole:   claims.ClaimedRole(),
		TokenID:       claims.ID,
		ExpiresAt:     claims.Expiry(),
	}, nil
}

// Permissions returns the permission set of roleName. A role that does not
// resolve grants nothing.
func (g *Guard) Permissions(ctx context.Context, roleName string) ([]string, error) {
	r, err := g.roles.Get(ctx, roleName)
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	return r.Permissions, nil
}

// Authorize succeeds iff required is a subset of the permissions of the
// identity's effective role. Denials are published to the audit sink.
func (g *Guard) Authorize(ctx context.Context, id *Identity, required []string, resource string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if len(required) == 0 {
		return nil
	}

	r, err := g.roles.Get(ctx, id.EffectiveRole)
	if err != nil && !errors.Is(err, role.ErrRoleNotFound) {
		g.logger.ErrorContext(ctx, "role lookup failed", "role", id.EffectiveRole, "error", err)
		return err
	}
	if err != nil {
		r = nil
	}

	missing := r.Missing(required)
	if len(missing) == 0 {
		return nil
	}

	var have []string
	if r != nil {
		have = r.Permissions
	}
	g.deny(ctx, id, required, have, resource)
	return ErrForbidden
}

func (g *Guard) deny(ctx context.Context, id *Identity, required, have []string, resource string) {
	if have == nil {
		have = []string{}
	}
	metrics.AuthorizationDenialsTotal.WithLabelValues(id.EffectiveRole).Inc()
	event := events.NewAccessDeniedEvent(id.Subject, id.EffectiveRole, required, have, resource)
	if g.audit == nil {
		g.logger.WarnContext(ctx, "RBAC deny",
			"subject", event.Subject,
			"effective_role", event.EffectiveRole,
			"required", event.Required,
			"have", event.Have,
			"resource", event.Resource)
		return
	}
	if err := g.audit.Publish(ctx, event); err != nil {
		g.logger.WarnContext(ctx, "failed to publish access denied event", "error", err)
	}
}
