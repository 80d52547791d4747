// Package inventory serializes stock check-and-decrement per product.
//
// The lock is the product's row lock in PostgreSQL, taken inside the caller's
// transaction and released when that transaction commits or rolls back, so the
// guarantee holds across any number of API instances.
package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

type Guard struct {
	noWait bool
}

// NewGuard returns a guard. With noWait, contention fails fast with
// database.ErrLockTimeout, which the retrying transaction runner retries.
func NewGuard(noWait bool) *Guard {
	return &Guard{noWait: noWait}
}

// WithProductLock locks productID for the rest of tx and runs fn with the
// product as read under the lock.
func (g *Guard) WithProductLock(ctx context.Context, tx *sql.Tx, productID int64, fn func(*models.Product) error) error {
	product, err := store.LockProduct(ctx, tx, productID, g.noWait)
	if err != nil {
		return err
	}
	return fn(product)
}

// Reserve takes quantity units of productID out of stock. The returned product
// carries the stock and price read under the lock, before the decrement.
func (g *Guard) Reserve(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve product %d: quantity must be positive, got %d", productID, quantity)
	}

	var reserved *models.Product
	err := g.WithProductLock(ctx, tx, productID, func(p *models.Product) error {
		if p.StockQuantity < quantity {
			return database.ErrInsufficientStock
		}
		if err := store.DecrementStock(ctx, tx, productID, quantity); err != nil {
			return err
		}
		reserved = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reserved, nil
}

// Restock gives quantity units back to productID.
func (g *Guard) Restock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	return g.WithProductLock(ctx, tx, productID, func(*models.Product) error {
		return store.IncrementStock(ctx, tx, productID, quantity)
	})
}
