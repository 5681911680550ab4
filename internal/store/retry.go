package store

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	writeMaxAttempts = 3
	writeBaseDelay   = 100 * time.Millisecond
)

// isBusy reports whether an error is a transient sqlite contention error.
// The driver surfaces SQLITE_BUSY and SQLITE_LOCKED as string-typed errors,
// so this matches on the canonical messages.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// withRetry runs fn up to writeMaxAttempts times, sleeping with doubling
// backoff between attempts when the store reports contention. Non-busy
// errors fail immediately. Every store write goes through here.
func withRetry(ctx context.Context, log *zap.Logger, op string, fn func() error) error {
	delay := writeBaseDelay
	var err error
	for attempt := 1; attempt <= writeMaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isBusy(err) || attempt == writeMaxAttempts {
			return err
		}
		log.Debug("store busy, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
