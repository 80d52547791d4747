package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/shopspring/decimal"
)

// GetOrCreateCart returns the user's cart, creating it on first access.
func GetOrCreateCart(ctx context.Context, q database.Querier, userID int64) (*models.Cart, error) {
	return loadCart(ctx, q, userID, false)
}

// LockCart is GetOrCreateCart that also takes the cart row lock, serializing
// cart edits and order placement for the same user.
func LockCart(ctx context.Context, tx *sql.Tx, userID int64) (*models.Cart, error) {
	return loadCart(ctx, tx, userID, true)
}

func loadCart(ctx context.Context, q database.Querier, userID int64, forUpdate bool) (*models.Cart, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO carts (user_id, created_at, updated_at)
		 VALUES ($1, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("ensure cart: %w", err)
	}

	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	cart := &models.Cart{}
	err = q.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.quantity, p.price, ci.created_at, ci.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func scanCartItem(row rowScanner, item *models.CartItem) error {
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.ProductName,
		&item.Quantity,
		&item.UnitPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return nil
}

// ListCartItems returns the cart lines ordered by product id, priced at the
// current product price.
func ListCartItems(ctx context.Context, q database.Querier, cartID int64) ([]models.CartItem, error) {
	rows, err := q.QueryContext(ctx, cartItemSelect+`
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := scanCartItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func GetCartItem(ctx context.Context, q database.Querier, itemID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	if err := scanCartItem(q.QueryRowContext(ctx, cartItemSelect+` WHERE ci.id = $1`, itemID), item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

// CartItemQuantity returns the quantity of productID already in the cart, or
// zero when there is no such line.
func CartItemQuantity(ctx context.Context, q database.Querier, cartID, productID int64) (int, error) {
	var quantity int
	err := q.QueryRowContext(ctx,
		`SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get cart item quantity: %w", err)
	}
	return quantity, nil
}

// AddCartItem inserts a line or merges quantity into the existing line for
// the same product.
func AddCartItem(ctx context.Context, q database.Querier, cartID, productID int64, quantity int) (int64, error) {
	var itemID int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
		               updated_at = NOW()
		 RETURNING id`,
		cartID, productID, quantity).Scan(&itemID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, database.ErrProductNotFound
		}
		return 0, fmt.Errorf("add cart item: %w", err)
	}

	return itemID, nil
}

func UpdateCartItemQuantity(ctx context.Context, q database.Querier, itemID int64, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2`,
		quantity, itemID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

func DeleteCartItem(ctx context.Context, q database.Querier, itemID int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

// ClearCart removes every line and returns how many were removed.
func ClearCart(ctx context.Context, q database.Querier, cartID int64) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return removed, nil
}
