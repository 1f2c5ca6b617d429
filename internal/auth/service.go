package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/core/common/validation"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, id *Identity) (*Profile, error)
}

// Service is the main auth service with dependencies
type Service struct {
	accounts AccountStore
	codec    *TokenCodec
	revoker  Revoker
	guard    *Guard
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewService creates a new auth service
func NewService(accounts AccountStore, codec *TokenCodec, revoker Revoker, guard *Guard, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		codec:    codec,
		revoker:  revoker,
		guard:    guard,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Login checks the credentials and issues a session token claiming the
// user's current canonical role.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*Session, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	account, err := s.accounts.GetAccount(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(account.PasswordHash, dto.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrUserInactive
	}

	roleName := role.Canonicalize(account.Role)
	token, expiresAt, err := s.codec.Encode(account.Email, roleName, s.tokenTTL)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue session", err)
	}

	perms, err := s.guard.Permissions(ctx, roleName)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "email", account.Email, "role", roleName)
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      profileOf(account, roleName, perms),
	}, nil
}

// Logout revokes token until it expires. Tokens that no longer decode have
// nothing left to revoke.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil
	}
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke session", "error", err)
		return apperrors.NewInternalError("failed to revoke session", err)
	}
	s.logger.InfoContext(ctx, "user logged out", "email", claims.Subject)
	return nil
}

func (s *Service) Me(ctx context.Context, id *Identity) (*Profile, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	account, err := s.accounts.GetAccount(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	perms, err := s.guard.Permissions(ctx, id.EffectiveRole)
	if err != nil {
		return nil, err
	}
	p := profileOf(account, id.EffectiveRole, perms)
	return &p, nil
}

func profileOf(a *Account, roleName string, perms []string) Profile {
	if perms == nil {
		perms = []string{}
	}
	return Profile{
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Role:        roleName,
		Permissions: perms,
	}
}
