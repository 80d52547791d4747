package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

var seq atomic.Int64

func next() int64 {
	return seq.Add(1)
}

func CreateUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	n := next()
	user, err := store.CreateUser(context.Background(), db,
		fmt.Sprintf("user%d@example.com", n), fmt.Sprintf("User %d", n), models.RoleCustomer)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func CreateAddress(t *testing.T, db *sql.DB, userID int64) *models.Address {
	t.Helper()
	addr, err := store.CreateAddress(context.Background(), db, models.Address{
		UserID:     userID,
		Line1:      fmt.Sprintf("%d Main Street", next()),
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	})
	if err != nil {
		t.Fatalf("Create address: %v", err)
	}
	return addr
}

// CreateProduct inserts a product priced at price (a decimal string).
func CreateProduct(t *testing.T, db *sql.DB, price string, stock int) *models.Product {
	t.Helper()
	n := next()
	product, err := store.CreateProduct(context.Background(), db, store.ProductInput{
		SKU:   fmt.Sprintf("SKU-%06d", n),
		Name:  fmt.Sprintf("Product %d", n),
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

// AddToCart puts quantity units of productID into the user's cart without
// any stock check.
func AddToCart(t *testing.T, db *sql.DB, userID, productID int64, quantity int) {
	t.Helper()
	ctx := context.Background()
	cart, err := store.GetOrCreateCart(ctx, db, userID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if _, err := store.AddCartItem(ctx, db, cart.ID, productID, quantity); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}
}

func Stock(t *testing.T, db *sql.DB, productID int64) int {
	t.Helper()
	product, err := store.GetProduct(context.Background(), db, productID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	return product.StockQuantity
}

func CartSize(t *testing.T, db *sql.DB, userID int64) int {
	t.Helper()
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1`, userID).Scan(&n)
	if err != nil {
		t.Fatalf("Count cart items: %v", err)
	}
	return n
}
