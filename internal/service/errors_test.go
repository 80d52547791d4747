package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"product not found", fmt.Errorf("load: %w", database.ErrProductNotFound), apperr.KindNotFound},
		{"order not found", database.ErrOrderNotFound, apperr.KindNotFound},
		{"insufficient stock", database.ErrInsufficientStock, apperr.KindInvalidRequest},
		{"optimistic lock", database.ErrOptimisticLockFailed, apperr.KindConflict},
		{"unique violation", &pq.Error{Code: "23505"}, apperr.KindConflict},
		{"foreign key violation", &pq.Error{Code: "23503"}, apperr.KindConflict},
		{"deadlock after retries", fmt.Errorf("max retries (3) exceeded: %w", &pq.Error{Code: "40P01"}), apperr.KindUnavailable},
		{"lock timeout", database.ErrLockTimeout, apperr.KindUnavailable},
		{"deadline", context.DeadlineExceeded, apperr.KindUnavailable},
		{"unknown", errors.New("connection reset"), apperr.KindInternal},
		{"already classified", apperr.Forbidden("nope"), apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			assert.Equal(t, tt.want, apperr.KindOf(got))
			assert.True(t, errors.Is(got, tt.err))
		})
	}

	assert.NoError(t, translate(nil))
}
