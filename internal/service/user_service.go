package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("inactive user")
)

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// UserService manages accounts and password login.
type UserService struct {
	users  repository.UserRepository
	tx     repository.TxManager
	hasher PasswordHasher
}

func NewUserService(users repository.UserRepository, tx repository.TxManager, hasher PasswordHasher) *UserService {
	return &UserService{users: users, tx: tx, hasher: hasher}
}

// UserPatch carries the fields of a partial account update.
type UserPatch struct {
	Email    *string
	FullName *string
	Password *string
	IsActive *bool
}

// Register creates an active account. Emails are unique.
func (s *UserService) Register(ctx context.Context, email, fullName, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if !validEmail(email) || strings.TrimSpace(fullName) == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := domain.User{Email: email, FullName: fullName, PasswordHash: hash, IsActive: true}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.emailFree(ctx, email, 0); err != nil {
			return err
		}
		return s.users.Create(ctx, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks an email and password pair. Inactive accounts are
// reported separately so callers can answer with a distinct status.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Update applies the fields set in patch. A changed email must still be unique.
func (s *UserService) Update(ctx context.Context, id int64, patch UserPatch) (*domain.User, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if patch.Email != nil {
		e := normalizeEmail(*patch.Email)
		if !validEmail(e) {
			return nil, ErrInvalidInput
		}
		patch.Email = &e
	}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) == "" {
		return nil, ErrInvalidInput
	}
	var hash string
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, ErrInvalidInput
		}
		h, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	var updated *domain.User
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Email != nil && *patch.Email != u.Email {
			if err := s.emailFree(ctx, *patch.Email, id); err != nil {
				return err
			}
			u.Email = *patch.Email
		}
		if patch.FullName != nil {
			u.FullName = *patch.FullName
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		if patch.IsActive != nil {
			u.IsActive = *patch.IsActive
		}
		if err := s.users.Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.users.Delete(ctx, id)
}

func (s *UserService) emailFree(ctx context.Context, email string, self int64) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.ID == self {
		return nil
	}
	return fmt.Errorf("email %s: %w", email, ErrAlreadyExists)
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func validEmail(e string) bool {
	a, err := mail.ParseAddress(e)
	return err == nil && a.Address == e
}
