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

var ErrPermissionDenied = errors.New("permission denied")

// ReviewService manages product reviews, one per user and product.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
}

func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository, orders repository.OrderRepository, tx repository.TxManager) *ReviewService {
	return &ReviewService{reviews: reviews, products: products, orders: orders, tx: tx}
}

// ReviewPatch carries the fields of a partial review update.
type ReviewPatch struct {
	Rating  *int
	Title   *string
	Comment *string
}

// Create stores a review by userID. The product must exist and the user must
// not have reviewed it yet. VerifiedPurchase is true when any order of the
// user, in any status, contains the product.
func (s *ReviewService) Create(ctx context.Context, userID int64, r domain.Review) (*domain.Review, error) {
	if userID <= 0 || r.ProductID <= 0 || !validRating(r.Rating) || strings.TrimSpace(r.Title) == "" {
		return nil, ErrInvalidInput
	}
	cp := domain.Review{
		ProductID: r.ProductID,
		UserID:    userID,
		Rating:    r.Rating,
		Title:     r.Title,
		Comment:   r.Comment,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetByID(ctx, cp.ProductID); err != nil {
			return err
		}
		if _, err := s.reviews.GetByUserAndProduct(ctx, userID, cp.ProductID); err == nil {
			return fmt.Errorf("user %d already reviewed product %d: %w", userID, cp.ProductID, ErrAlreadyExists)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		orders, err := s.orders.List(ctx, repository.OrderFilter{UserID: &userID})
		if err != nil {
			return err
		}
		for _, o := range orders {
			if o.Contains(cp.ProductID) {
				cp.VerifiedPurchase = true
				break
			}
		}
		return s.reviews.Create(ctx, &cp)
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ReviewService) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.reviews.GetByID(ctx, id)
}

// ListForProduct returns the reviews of an existing product.
func (s *ReviewService) ListForProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.reviews.List(ctx, repository.ReviewFilter{ProductID: &productID})
}

func (s *ReviewService) ListForUser(ctx context.Context, userID int64) ([]domain.Review, error) {
	return s.reviews.List(ctx, repository.ReviewFilter{UserID: &userID})
}

// Update edits a review owned by userID. A missing review and someone else's
// review fail the same way.
func (s *ReviewService) Update(ctx context.Context, id, userID int64, patch ReviewPatch) (*domain.Review, error) {
	if (patch.Rating != nil && !validRating(*patch.Rating)) || (patch.Title != nil && strings.TrimSpace(*patch.Title) == "") {
		return nil, ErrInvalidInput
	}
	var updated *domain.Review
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		r, err := s.owned(ctx, id, userID)
		if err != nil {
			return err
		}
		if patch.Rating != nil {
			r.Rating = *patch.Rating
		}
		if patch.Title != nil {
			r.Title = *patch.Title
		}
		if patch.Comment != nil {
			r.Comment = *patch.Comment
		}
		if err := s.reviews.Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a review owned by userID.
func (s *ReviewService) Delete(ctx context.Context, id, userID int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.owned(ctx, id, userID); err != nil {
			return err
		}
		return s.reviews.Delete(ctx, id)
	})
}

// RatingStats aggregates the reviews of an existing product. The average is
// rounded to two decimals and is 0 when there are no reviews.
func (s *ReviewService) RatingStats(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	list, err := s.ListForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	stats := &domain.RatingStats{ProductID: productID, Distribution: make(map[int]int, domain.MaxRating)}
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		stats.Distribution[r] = 0
	}
	if len(list) == 0 {
		return stats, nil
	}
	sum := 0
	for _, r := range list {
		sum += r.Rating
		stats.Distribution[r.Rating]++
	}
	stats.Count = len(list)
	stats.Average = decimal.NewFromInt(int64(sum)).
		DivRound(decimal.NewFromInt(int64(len(list))), 2).
		InexactFloat64()
	return stats, nil
}

func (s *ReviewService) owned(ctx context.Context, id, userID int64) (*domain.Review, error) {
	r, err := s.reviews.GetByID(ctx, id)
	if err == nil && r.UserID == userID {
		return r, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("review %d not found or not owned: %w: %w", id, repository.ErrNotFound, ErrPermissionDenied)
}

func validRating(r int) bool {
	return r >= domain.MinRating && r <= domain.MaxRating
}
