package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/shopspring/decimal"
)

type ProductInput struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *int64
	ImageURLs   []string
}

type ProductFilter struct {
	CategoryID *int64
}

const productColumns = `id, sku, name, description, price, stock_quantity, category_id, image_urls, created_at, updated_at, version`

func scanProduct(row rowScanner, product *models.Product) error {
	var categoryID sql.NullInt64
	var imageURLs []string

	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&categoryID,
		pq.Array(&imageURLs),
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return err
	}

	product.CategoryID = nil
	if categoryID.Valid {
		id := categoryID.Int64
		product.CategoryID = &id
	}
	product.ImageURLs = imageURLs

	return nil
}

func CreateProduct(ctx context.Context, q database.Querier, in ProductInput) (*models.Product, error) {
	product := &models.Product{}

	imageURLs := in.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}

	query := `
		INSERT INTO products (sku, name, description, price, stock_quantity, category_id, image_urls, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	err := scanProduct(q.QueryRowContext(ctx, query,
		in.SKU, in.Name, in.Description, in.Price, in.Stock, in.CategoryID, pq.Array(imageURLs)), product)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(q.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// LockProduct reads the product while taking its row lock for the rest of the
// transaction. With noWait the call fails with ErrLockTimeout instead of
// queueing behind another holder.
func LockProduct(ctx context.Context, tx *sql.Tx, productID int64, noWait bool) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	if noWait {
		query += ` NOWAIT`
	}

	if err := scanProduct(tx.QueryRowContext(ctx, query, productID), product); err != nil {
		if database.IsLockNotAvailable(err) {
			return nil, database.ErrLockTimeout
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product %d: %w", productID, err)
	}

	return product, nil
}

// DecrementStock removes quantity units only if that many are on hand.
func DecrementStock(ctx context.Context, q database.Querier, productID int64, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func IncrementStock(ctx context.Context, q database.Querier, productID int64, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// UpdateStockOptimistic sets an absolute stock level if the caller saw the
// current version.
func UpdateStockOptimistic(ctx context.Context, q database.Querier, productID int64, newStock int, version int) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET stock_quantity = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + productColumns

	err := scanProduct(q.QueryRowContext(ctx, query, newStock, productID, version), product)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	if _, err := GetProduct(ctx, q, productID); err != nil {
		return nil, err
	}
	return nil, database.ErrOptimisticLockFailed
}

func UpdateProductPrice(ctx context.Context, q database.Querier, productID int64, price decimal.Decimal) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET price = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	if err := scanProduct(q.QueryRowContext(ctx, query, price, productID), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update price: %w", err)
	}

	return product, nil
}

func ListProducts(ctx context.Context, q database.Querier, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE ($1::BIGINT IS NULL OR category_id = $1)`,
		filter.CategoryID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1::BIGINT IS NULL OR category_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := q.QueryContext(ctx, query, filter.CategoryID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
