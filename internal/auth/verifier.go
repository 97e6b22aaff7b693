package auth

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ErrInactive marks a valid credential whose user has been deactivated.
var ErrInactive = errors.New("inactive user")

// Identity is the caller resolved from a credential.
type Identity struct {
	UserID int64
	Active bool
}

// Verifier resolves an opaque bearer credential to an identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// UserLookup is the slice of the user repository the verifier needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TokenVerifier validates JWTs and re-reads the user on every call, so
// deactivation and deletion take effect before the token expires.
type TokenVerifier struct {
	tokens *Tokens
	users  UserLookup
}

func NewTokenVerifier(tokens *Tokens, users UserLookup) *TokenVerifier {
	return &TokenVerifier{tokens: tokens, users: users}
}

func (v *TokenVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	id, err := v.tokens.Validate(credential)
	if err != nil {
		return Identity{}, err
	}
	u, err := v.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: user %d gone", ErrRejected, id)
	}
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: u.ID, Active: u.IsActive}, nil
}
