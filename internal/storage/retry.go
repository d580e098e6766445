package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Retry policy for the wallet-path transactions. Conflicts there are short
// (row locks on a handful of rows), so a small budget with a short base
// delay clears them.
const (
	txMaxRetries = 3
	txBaseDelay  = 25 * time.Millisecond
)

// isRetriable returns true for Postgres error codes that indicate a transient conflict.
func isRetriable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001": // serialization_failure
		return true
	case "40P01": // deadlock_detected
		return true
	default:
		return false
	}
}

// WithRetry executes fn, retrying up to maxRetries times on serialization or
// deadlock errors. Retries use jittered exponential backoff starting at
// baseDelay. Wallet debits under concurrent transfer+sell+redeem load hit
// these conflicts; callers outside the wallet path rarely need this.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := range maxRetries + 1 {
		err = fn()
		if err == nil || !isRetriable(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		jitter := time.Duration(rand.Int64N(int64(baseDelay))) //nolint:gosec // jitter doesn't need crypto-strength randomness
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay + jitter):
		}
		baseDelay *= 2
	}
	return err
}

// withTxRetry runs fn under the wallet retry policy. A conflict that survives
// the whole retry budget comes back as ErrConflict so handlers can answer 409
// instead of 500.
func withTxRetry(ctx context.Context, fn func() error) error {
	err := WithRetry(ctx, txMaxRetries, txBaseDelay, fn)
	if isRetriable(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
