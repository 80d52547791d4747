package inventory_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/inventory"
	"github.com/safar/go-sql-shop/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveAndRestock(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	guard := inventory.NewGuard(false)
	product := testutil.CreateProduct(t, db, "19.99", 5)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		reserved, err := guard.Reserve(ctx, tx, product.ID, 3)
		if err != nil {
			return err
		}
		assert.Equal(t, 5, reserved.StockQuantity)
		assert.True(t, reserved.Price.Equal(product.Price))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, testutil.Stock(t, db, product.ID))

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := guard.Reserve(ctx, tx, product.ID, 3)
		return err
	})
	assert.ErrorIs(t, err, database.ErrInsufficientStock)
	assert.Equal(t, 2, testutil.Stock(t, db, product.ID))

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return guard.Restock(ctx, tx, product.ID, 3)
	})
	require.NoError(t, err)
	assert.Equal(t, 5, testutil.Stock(t, db, product.ID))
}

func TestReserveRejectsBadInput(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	guard := inventory.NewGuard(false)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := guard.Reserve(ctx, tx, 999999, 1)
		return err
	})
	assert.ErrorIs(t, err, database.ErrProductNotFound)

	product := testutil.CreateProduct(t, db, "1.00", 5)
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := guard.Reserve(ctx, tx, product.ID, 0)
		return err
	})
	assert.Error(t, err)
	assert.Equal(t, 5, testutil.Stock(t, db, product.ID))
}

func TestConcurrentReservations(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	guard := inventory.NewGuard(false)
	product := testutil.CreateProduct(t, db, "1.00", 10)

	concurrency := 8
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
				_, err := guard.Reserve(ctx, tx, product.ID, 2)
				return err
			})
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, database.ErrInsufficientStock)
		}
	}

	assert.Equal(t, 5, successCount)
	assert.Zero(t, testutil.Stock(t, db, product.ID))
}

func TestNoWaitGuard(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "1.00", 10)

	holder, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer holder.Rollback()
	_, err = inventory.NewGuard(false).Reserve(ctx, holder, product.ID, 1)
	require.NoError(t, err)

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := inventory.NewGuard(true).Reserve(ctx, tx, product.ID, 1)
		return err
	})
	assert.ErrorIs(t, err, database.ErrLockTimeout)
}
