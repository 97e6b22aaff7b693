package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
)

// ErrNotFound is returned when an entity id is absent from its collection.
var ErrNotFound = errors.New("not found")

// ProductFilter narrows a product listing. An empty Category matches everything.
type ProductFilter struct {
	Category string
}

// OrderFilter narrows an order listing to one owner when UserID is set.
type OrderFilter struct {
	UserID *int64
}

// ReviewFilter narrows a review listing by product and/or author.
type ReviewFilter struct {
	ProductID *int64
	UserID    *int64
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.User, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Category, error)
}

// CartRepository stores one cart per user, keyed by the user id.
type CartRepository interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Save(ctx context.Context, c *domain.Cart) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	GetByUserAndProduct(ctx context.Context, userID, productID int64) (*domain.Review, error)
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ReviewFilter) ([]domain.Review, error)
}

// TxManager runs fn so that no other store operation observes its intermediate state.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

func equalFoldOrEmpty(s, want string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(s, want)
}
