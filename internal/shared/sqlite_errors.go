// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// IsSQLiteBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError checks if the error is a "database is locked" error.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError reports whether err is a SQLite concurrency error
// worth retrying.
func IsSQLiteConflictError(err error) bool {
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}

// Retry schedule for RetryOnConflict.
const (
	maxConflictRetries = 3
	conflictBaseDelay  = 50 * time.Millisecond
)

// RetryOnConflict runs fn, retrying with exponential backoff (50ms, 100ms)
// while it fails with a SQLite conflict. Other errors return immediately.
func RetryOnConflict(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = conflictBaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !IsSQLiteConflictError(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxConflictRetries),
		backoff.WithNotify(func(err error, delay time.Duration) {
			slog.Debug("Database locked, retrying", "op", op, "delay", delay, "error", err)
		}),
	)

	switch {
	case err == nil:
		return nil
	case IsSQLiteConflictError(err):
		return fmt.Errorf("%s after %d attempts: %w", op, maxConflictRetries, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return err
	}
}
