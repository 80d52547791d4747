package service

import (
	"context"
	"errors"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/database"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAddressOwnership  = errors.New("address belongs to another user")
	ErrCartOwnership     = errors.New("cart item belongs to another user")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
)

// translate turns store and driver errors into *apperr.Error. Errors that are
// already classified pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, database.ErrUserNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "user not found")
	case errors.Is(err, database.ErrAddressNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "address not found")
	case errors.Is(err, database.ErrCategoryNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "category not found")
	case errors.Is(err, database.ErrProductNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "product not found")
	case errors.Is(err, database.ErrCartItemNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "cart item not found")
	case errors.Is(err, database.ErrOrderNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "order not found")
	case errors.Is(err, database.ErrInsufficientStock):
		return apperr.Wrap(err, apperr.KindInvalidRequest, "insufficient stock")
	case errors.Is(err, database.ErrOptimisticLockFailed):
		return apperr.Wrap(err, apperr.KindConflict, "resource was modified concurrently, reload and retry")
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(err, apperr.KindUnavailable, "request timed out, retry")
	case database.IsRetryable(err):
		return apperr.Wrap(err, apperr.KindUnavailable, "resource is busy, retry")
	case database.IsUniqueViolation(err):
		return apperr.Wrap(err, apperr.KindConflict, "resource already exists")
	case database.IsForeignKeyViolation(err):
		return apperr.Wrap(err, apperr.KindConflict, "resource is referenced by other records")
	}

	return apperr.Wrap(err, apperr.KindInternal, "internal error")
}
