package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"
)

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
		MaxRetries:     3,
	}
}

// WithTransaction runs fn in a single transaction. The transaction is rolled
// back when fn returns an error or panics.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	err, commitErr := runTx(ctx, db, opts, fn)
	if err != nil {
		return err
	}
	if commitErr != nil {
		return fmt.Errorf("commit transaction: %w", commitErr)
	}
	return nil
}

// WithRetry behaves like WithTransaction but re-runs fn with jittered
// exponential backoff while the failure is a deadlock, a serialization failure
// or lock contention.
func WithRetry(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	var lastErr error
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err, commitErr := runTx(ctx, db, opts, fn)
		if err == nil && commitErr == nil {
			return nil
		}

		failure, stage := err, ""
		if failure == nil {
			failure, stage = commitErr, " on commit"
		}

		if ClassifyError(failure) == ErrorClassPermanent {
			if stage != "" {
				return fmt.Errorf("commit transaction: %w", failure)
			}
			return failure
		}

		if attempt == opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded%s: %w", opts.MaxRetries, stage, failure)
		}

		lastErr = failure

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
	}

	return lastErr
}

// runTx returns the error from fn (after rollback) separately from the commit
// error so callers can report them differently.
func runTx(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) (err error, commitErr error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err), nil
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err), nil
		}
		return err, nil
	}

	return nil, tx.Commit()
}
