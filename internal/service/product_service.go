package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ProductService holds the catalog rules for products.
type ProductService struct {
	repo repository.ProductRepository
	tx   repository.TxManager
}

func NewProductService(repo repository.ProductRepository, tx repository.TxManager) *ProductService {
	return &ProductService{repo: repo, tx: tx}
}

var ErrInvalidInput = errors.New("invalid input")

// ProductPatch carries the fields of a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int64
	Category    *string
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Category) == "" || !p.Price.IsPositive() || p.Stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies only the fields set in patch.
func (s *ProductService) Update(ctx context.Context, id int64, patch ProductPatch) (*domain.Product, error) {
	if id <= 0 || !patch.valid() {
		return nil, ErrInvalidInput
	}
	var updated *domain.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.apply(p)
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the product. Carts and orders that reference it are left as they are.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

// List returns products in creation order, filtered by category when one is given.
func (s *ProductService) List(ctx context.Context, category string) ([]domain.Product, error) {
	return s.repo.List(ctx, repository.ProductFilter{Category: strings.TrimSpace(category)})
}

// AdjustStock adds delta (negative to decrease) to the product stock.
func (s *ProductService) AdjustStock(ctx context.Context, id, delta int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Stock+delta < 0 {
			return fmt.Errorf("product %d has %d in stock: %w", id, p.Stock, ErrNotEnoughStock)
		}
		p.Stock += delta
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (p ProductPatch) valid() bool {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return false
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return false
	}
	if p.Price != nil && !p.Price.IsPositive() {
		return false
	}
	return p.Stock == nil || *p.Stock >= 0
}

func (p ProductPatch) apply(dst *domain.Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
}
