package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
)

const addressColumns = `id, user_id, line1, line2, city, state, postal_code, country, created_at, updated_at`

func scanAddress(row rowScanner, addr *models.Address) error {
	return row.Scan(
		&addr.ID,
		&addr.UserID,
		&addr.Line1,
		&addr.Line2,
		&addr.City,
		&addr.State,
		&addr.PostalCode,
		&addr.Country,
		&addr.CreatedAt,
		&addr.UpdatedAt,
	)
}

func CreateAddress(ctx context.Context, q database.Querier, in models.Address) (*models.Address, error) {
	addr := &models.Address{}

	query := `
		INSERT INTO addresses (user_id, line1, line2, city, state, postal_code, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + addressColumns

	err := scanAddress(q.QueryRowContext(ctx, query,
		in.UserID, in.Line1, in.Line2, in.City, in.State, in.PostalCode, in.Country), addr)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create address: %w", err)
	}

	return addr, nil
}

func GetAddress(ctx context.Context, q database.Querier, id int64) (*models.Address, error) {
	addr := &models.Address{}

	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	if err := scanAddress(q.QueryRowContext(ctx, query, id), addr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAddressNotFound
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	return addr, nil
}

func ListAddresses(ctx context.Context, q database.Querier, userID int64) ([]models.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var addr models.Address
		if err := scanAddress(rows, &addr); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return addresses, nil
}

// AddressInUse reports whether any order references the address for shipping
// or billing.
func AddressInUse(ctx context.Context, q database.Querier, id int64) (bool, error) {
	var inUse bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM orders
			WHERE shipping_address_id = $1 OR billing_address_id = $1)`,
		id).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("check address in use: %w", err)
	}
	return inUse, nil
}

func DeleteAddress(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrAddressNotFound
	}

	return nil
}
