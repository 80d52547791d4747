package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"wrapped deadlock", fmt.Errorf("lock product: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock},
		{"lock timeout sentinel", fmt.Errorf("reserve: %w", ErrLockTimeout), ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"insufficient stock", ErrInsufficientStock, ErrorClassPermanent},
		{"unknown", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(ErrLockTimeout))
	assert.False(t, IsRetryable(ErrInsufficientStock))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert order: %w", &pq.Error{Code: "23505", Constraint: "orders_order_code_key"})

	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(err, "orders_order_code_key"))
	assert.False(t, IsUniqueViolation(err, "users_email_key"))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestIsForeignKeyViolation(t *testing.T) {
	err := &pq.Error{Code: "23503", Constraint: "orders_shipping_address_id_fkey"}

	assert.True(t, IsForeignKeyViolation(err))
	assert.True(t, IsForeignKeyViolation(err, "orders_shipping_address_id_fkey"))
	assert.False(t, IsLockNotAvailable(err))
}
