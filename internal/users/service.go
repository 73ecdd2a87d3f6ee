package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields for registering a user.
type CreateInput struct {
	Email     string
	Name      string
	Phone     string
	Password  string
	CompanyID *int64
	BranchID  *int64
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// GetUser fetches a single user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// CreateUser registers a new active user with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return User{}, errors.New("users: email required")
	}
	if len(input.Password) < 8 {
		return User{}, errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(input.Name),
		Phone:     strings.TrimSpace(input.Phone),
		CompanyID: input.CompanyID,
		BranchID:  input.BranchID,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, user, string(hash)); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUser updates profile fields.
func (s *Service) UpdateUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return ErrNotFound
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return errors.New("users: email required")
	}
	return s.repo.Update(ctx, u)
}

// DeactivateUser disables login and permission resolution for the account
// while keeping it on record.
func (s *Service) DeactivateUser(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return s.repo.SetActive(ctx, id, false)
}

// ActivateUser re-enables a previously deactivated account.
func (s *Service) ActivateUser(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return s.repo.SetActive(ctx, id, true)
}

// ChangePassword replaces the stored bcrypt hash.
func (s *Service) ChangePassword(ctx context.Context, id, password string) error {
	if id == "" {
		return ErrNotFound
	}
	if len(password) < 8 {
		return errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, id, string(hash))
}
