package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CategoryService maintains the category tree.
type CategoryService struct {
	repo repository.CategoryRepository
	tx   repository.TxManager
}

func NewCategoryService(repo repository.CategoryRepository, tx repository.TxManager) *CategoryService {
	return &CategoryService{repo: repo, tx: tx}
}

// CategoryPatch carries the fields of a partial category update.
type CategoryPatch struct {
	Name        *string
	Description *string
	ParentID    *int64
}

// Create adds a category. Names are unique case-insensitively at creation
// time only, and a given parent must exist.
func (s *CategoryService) Create(ctx context.Context, c domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, ErrInvalidInput
	}
	cp := c
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByName(ctx, cp.Name); err == nil {
			return fmt.Errorf("category %q: %w", cp.Name, ErrAlreadyExists)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if cp.ParentID != nil {
			if _, err := s.repo.GetByID(ctx, *cp.ParentID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("parent category %d not found: %w", *cp.ParentID, ErrInvalidInput)
				}
				return err
			}
		}
		return s.repo.Create(ctx, &cp)
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CategoryService) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

// Roots returns the categories without a parent.
func (s *CategoryService) Roots(ctx context.Context) ([]domain.Category, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// Subcategories returns the direct children of parentID, which must exist.
func (s *CategoryService) Subcategories(ctx context.Context, parentID int64) ([]domain.Category, error) {
	if _, err := s.GetByID(ctx, parentID); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0)
	for _, c := range all {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Update applies the fields set in patch. A ParentID equal to the category's
// own id is ignored and the rest of the patch still applies.
func (s *CategoryService) Update(ctx context.Context, id int64, patch CategoryPatch) (*domain.Category, error) {
	if id <= 0 || (patch.Name != nil && strings.TrimSpace(*patch.Name) == "") {
		return nil, ErrInvalidInput
	}
	var updated *domain.Category
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.ParentID != nil && *patch.ParentID != id {
			pid := *patch.ParentID
			c.ParentID = &pid
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the category. Children keep their now dangling parent id.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}
