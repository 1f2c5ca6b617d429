package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/core/events"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

var (
	ErrUnauthenticated    = apperrors.ErrUnauthenticated
	ErrForbidden          = apperrors.ErrForbidden
	ErrInvalidToken       = apperrors.ErrInvalidToken
	ErrTokenExpired       = apperrors.ErrTokenExpired
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
	ErrUserInactive       = apperrors.ErrUserInactive
)

// Claims is the payload of a session token. The claimed role is read from
// "rol", with "role" accepted for tokens issued by older clients.
type Claims struct {
	Role       string `json:"rol,omitempty"`
	LegacyRole string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) ClaimedRole() string {
	if c.Role != "" {
		return c.Role
	}
	return c.LegacyRole
}

func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Identity is an authenticated caller. EffectiveRole is canonical and comes
// from the live user record whenever that record carries a role.
type Identity struct {
	Subject       string    `json:"subject"`
	EffectiveRole string    `json:"effective_role"`
	ClaimedRole   string    `json:"claimed_role,omitempty"`
	TokenID       string    `json:"-"`
	ExpiresAt     time.Time `json:"-"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.EffectiveRole == role.Admin
}

// Account is the slice of a stored user that authentication needs.
type Account struct {
	Email        string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash string
	IsActive     bool
}

// AccountStore returns apperrors.ErrUserNotFound for unknown emails.
type AccountStore interface {
	GetAccount(ctx context.Context, email string) (*Account, error)
}

type RoleLookup interface {
	Get(ctx context.Context, name string) (*role.Role, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Authorizer is the permission gate consumed by other packages.
type Authorizer interface {
	Authorize(ctx context.Context, id *Identity, required []string, resource string) error
}
