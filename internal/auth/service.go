package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/estateops/estateops/internal/rbac"
	"github.com/estateops/estateops/internal/shared"
)

// RoleSource supplies role name claims for a user.
type RoleSource interface {
	ActiveRoleNames(ctx context.Context, userID string) ([]string, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	checker rbac.PermissionChecker
	roles   RoleSource
}

// NewService constructs a new Service.
func NewService(repo Repository, checker rbac.PermissionChecker, roles RoleSource) *Service {
	return &Service{repo: repo, checker: checker, roles: roles}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Claims resolves the permission and role names hydrated into the session at
// login. The lookup runs with the internal-caller tag so claims hydration can
// never trip an authorization check of its own.
func (s *Service) Claims(ctx context.Context, userID string) (permissions, roles []string, err error) {
	ctx = rbac.ContextWithInternalCaller(ctx)
	permissions, err = s.checker.ListPermissions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	roles, err = s.roles.ActiveRoleNames(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return permissions, roles, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
