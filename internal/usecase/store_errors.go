package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the booking path cares about.
const (
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
)

// isOverlapViolation reports whether the store rejected a row because another
// live appointment already holds the doctor's time range.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation
	}
	return false
}

// isTransientStoreError reports failures worth retrying: lock waits that timed
// out, serialization failures, deadlocks and cancelled or expired contexts.
func isTransientStoreError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected, pgQueryCanceled:
			return true
		}
	}
	return pgconn.Timeout(err)
}

// translateStoreError maps driver errors onto the usecase error taxonomy.
// Usecase sentinel errors pass through untouched.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case isOverlapViolation(err):
		return ErrSlotAlreadyBooked
	case isTransientStoreError(err):
		return fmt.Errorf("%w: %v", ErrTransientStoreFailure, err)
	default:
		return err
	}
}
