package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
)

const orderColumns = `id, user_id, order_code, status, total_amount, shipping_address_id, billing_address_id,
	payment_method, payment_status, notes, created_at, updated_at, version`

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderCode,
		&order.Status,
		&order.TotalAmount,
		&order.ShippingAddressID,
		&order.BillingAddressID,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
}

// InsertOrder stores the order header and fills in the generated columns.
// An empty idempotencyKey is stored as NULL.
func InsertOrder(ctx context.Context, q database.Querier, order *models.Order, idempotencyKey string) error {
	key := sql.NullString{String: idempotencyKey, Valid: idempotencyKey != ""}

	query := `
		INSERT INTO orders (user_id, order_code, status, total_amount, shipping_address_id, billing_address_id,
		                    payment_method, payment_status, notes, idempotency_key, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
		RETURNING ` + orderColumns

	err := scanOrder(q.QueryRowContext(ctx, query,
		order.UserID,
		order.OrderCode,
		order.Status,
		order.TotalAmount,
		order.ShippingAddressID,
		order.BillingAddressID,
		order.PaymentMethod,
		order.PaymentStatus,
		order.Notes,
		key,
	), order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

func InsertOrderItem(ctx context.Context, q database.Querier, item *models.OrderItem) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order item: %w", err)
	}
	return nil
}

// GetOrder returns the order with its lines.
func GetOrder(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	if err := scanOrder(q.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := ListOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// LockOrder reads the order header (without lines) under a row lock.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	if err := scanOrder(tx.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

func FindOrderByIdempotencyKey(ctx context.Context, q database.Querier, userID int64, key string) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND idempotency_key = $2`

	if err := scanOrder(q.QueryRowContext(ctx, query, userID, key), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}

	return order, nil
}

func ListOrderItems(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderItem, error) {
	itemsQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.subtotal, oi.created_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := q.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// UpdateOrderStatus writes the two mutable fields of a placed order.
func UpdateOrderStatus(ctx context.Context, q database.Querier, id int64, status models.OrderStatus, paymentStatus models.PaymentStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, payment_status = $2, updated_at = NOW(), version = version + 1
		 WHERE id = $3`,
		status, paymentStatus, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

func ListOrdersCursor(ctx context.Context, q database.Querier, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ClaimNextPendingOrder locks the oldest PENDING order, skipping rows other
// workers already hold.
func ClaimNextPendingOrder(ctx context.Context, tx *sql.Tx) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	if err := scanOrder(tx.QueryRowContext(ctx, query, models.OrderStatusPending), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("claim next pending order: %w", err)
	}

	return order, nil
}
