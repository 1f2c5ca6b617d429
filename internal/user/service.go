package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/core/common/validation"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, email string) (bool, error)
}

type RoleLookup interface {
	Get(ctx context.Context, name string) (*role.Role, error)
}

type Service struct {
	repo       Repository
	roles      RoleLookup
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, roles RoleLookup, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		roles:      roles,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	roleName, err := s.resolveRole(ctx, dto.Role)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        NormalizeEmail(dto.Email),
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		EmployeeCode: dto.EmployeeCode,
		Role:         roleName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if !errors.Is(err, apperrors.ErrUserExists) {
			s.logger.ErrorContext(ctx, "failed to create user", "email", u.Email, "error", err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "email", u.Email, "role", u.Role)
	return u, nil
}

func (s *Service) Update(ctx context.Context, email string, dto UpdateUserDTO) (*User, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.EmployeeCode != nil {
		u.EmployeeCode = *dto.EmployeeCode
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.Role != nil {
		if u.Role, err = s.resolveRole(ctx, *dto.Role); err != nil {
			return nil, err
		}
	}
	if dto.Password != nil {
		if u.PasswordHash, err = auth.HashPassword(*dto.Password, s.bcryptCost); err != nil {
			return nil, apperrors.NewInternalError("failed to hash password", err)
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to update user", "email", u.Email, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "user updated", "email", u.Email, "role", u.Role, "is_active", u.IsActive)
	return u, nil
}

// Delete removes the user identified by email. Callers cannot delete their
// own account.
func (s *Service) Delete(ctx context.Context, actor *auth.Identity, email string) error {
	target := NormalizeEmail(email)
	if actor != nil && NormalizeEmail(actor.Subject) == target {
		return apperrors.ErrCannotDeleteSelf
	}

	deleted, err := s.repo.Delete(ctx, target)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrUserNotFound
	}

	s.logger.InfoContext(ctx, "user deleted", "email", target)
	return nil
}

// EnsureAdmin creates the bootstrap administrator unless a user with that
// email exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return false, err
	}

	_, err = s.Create(ctx, CreateUserDTO{
		Email:     email,
		Password:  password,
		FirstName: "Administrator",
		Role:      role.Admin,
	})
	if err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return true, nil
}

func (s *Service) resolveRole(ctx context.Context, raw string) (string, error) {
	name := role.Canonicalize(raw)
	if _, err := s.roles.Get(ctx, name); err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			return "", apperrors.NewValidationFieldError("role", fmt.Sprintf("unknown role %q", raw), apperrors.ErrCodeValidationFailed)
		}
		return "", err
	}
	return name, nil
}
