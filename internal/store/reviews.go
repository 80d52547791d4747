package store

import (
	"context"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
)

const reviewColumns = `id, product_id, user_id, rating, comment, created_at`

func scanReview(row rowScanner, r *models.Review) error {
	return row.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt)
}

func CreateReview(ctx context.Context, q database.Querier, productID, userID int64, rating int, comment string) (*models.Review, error) {
	review := &models.Review{}

	query := `
		INSERT INTO reviews (product_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + reviewColumns

	if err := scanReview(q.QueryRowContext(ctx, query, productID, userID, rating, comment), review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	return review, nil
}

func ListReviews(ctx context.Context, q database.Querier, productID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE product_id = $1`, productID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := q.QueryContext(ctx, query, productID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := scanReview(rows, &r); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(reviews, total, page, pageSize), nil
}
