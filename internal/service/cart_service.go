package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CartService edits per-user carts. Every mutation checks stock but reserves nothing.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	tx       repository.TxManager
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, tx repository.TxManager) *CartService {
	return &CartService{carts: carts, products: products, tx: tx}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *CartService) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	var cart *domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.load(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem adds quantity of a product, merging into an existing line. The
// combined quantity must not exceed current stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID, quantity int64) (*domain.Cart, error) {
	if userID <= 0 || productID <= 0 || quantity <= 0 {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Cart) error {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		idx := lineIndex(cart, productID)
		var have int64
		if idx >= 0 {
			have = cart.Items[idx].Quantity
		}
		if have+quantity > p.Stock {
			return fmt.Errorf("product %d: want %d, have %d: %w", productID, have+quantity, p.Stock, ErrNotEnoughStock)
		}
		if idx >= 0 {
			cart.Items[idx].Quantity += quantity
			return nil
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    quantity,
			UnitPrice:   p.Price,
		})
		return nil
	})
}

// RemoveItem drops the line for productID.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	if userID <= 0 || productID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, userID, func(_ context.Context, cart *domain.Cart) error {
		idx := lineIndex(cart, productID)
		if idx < 0 {
			return fmt.Errorf("product %d not in cart: %w", productID, repository.ErrNotFound)
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

// UpdateItemQuantity sets the quantity of an existing line. Zero or less
// removes the line instead.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID, quantity int64) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if userID <= 0 || productID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Cart) error {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > p.Stock {
			return fmt.Errorf("product %d: want %d, have %d: %w", productID, quantity, p.Stock, ErrNotEnoughStock)
		}
		idx := lineIndex(cart, productID)
		if idx < 0 {
			return fmt.Errorf("product %d not in cart: %w", productID, repository.ErrNotFound)
		}
		cart.Items[idx].Quantity = quantity
		return nil
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID int64) (*domain.Cart, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, userID, func(_ context.Context, cart *domain.Cart) error {
		cart.Items = []domain.CartItem{}
		return nil
	})
}

// mutate loads the cart, applies fn and saves it in one transaction. The cart
// is left untouched when fn fails.
func (s *CartService) mutate(ctx context.Context, userID int64, fn func(context.Context, *domain.Cart) error) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(ctx, c); err != nil {
			return err
		}
		if err := s.carts.Save(ctx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) load(ctx context.Context, userID int64) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		c = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
		return c, s.carts.Save(ctx, c)
	}
	return c, err
}

func lineIndex(c *domain.Cart, productID int64) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
