package service

import (
	"context"
	"database/sql"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

type ReviewService struct {
	db *sql.DB
}

func NewReviewService(db *sql.DB) *ReviewService {
	return &ReviewService{db: db}
}

func (s *ReviewService) CreateReview(ctx context.Context, userID, productID int64, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Invalid("rating must be between 1 and 5")
	}

	if _, err := store.GetProduct(ctx, s.db, productID); err != nil {
		return nil, translate(err)
	}

	review, err := store.CreateReview(ctx, s.db, productID, userID, rating, comment)
	if err != nil {
		if database.IsUniqueViolation(err, "reviews_product_user_key") {
			return nil, apperr.Wrap(err, apperr.KindConflict, "product %d already reviewed by this user", productID)
		}
		if database.IsForeignKeyViolation(err) {
			return nil, apperr.Wrap(err, apperr.KindNotFound, "user or product not found")
		}
		return nil, translate(err)
	}
	return review, nil
}

func (s *ReviewService) ListReviews(ctx context.Context, productID int64, page, pageSize int) (*store.OffsetPage, error) {
	if _, err := store.GetProduct(ctx, s.db, productID); err != nil {
		return nil, translate(err)
	}

	page, pageSize = store.NormalizePage(page, pageSize)
	result, err := store.ListReviews(ctx, s.db, productID, page, pageSize)
	return result, translate(err)
}
