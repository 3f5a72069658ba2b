package services

import (
	"context"
	"errors"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes worth telling apart in transfer failure logs
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgCheckViolation       = "23514"
	pgForeignKeyViolation  = "23503"
)

// describeStorageError gives a short label for a storage failure
func describeStorageError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure:
			return "serialization failure"
		case pgDeadlockDetected:
			return "deadlock"
		case pgCheckViolation:
			return "check violation: " + pqErr.Constraint
		case pgForeignKeyViolation:
			return "foreign key violation: " + pqErr.Constraint
		default:
			return "postgres " + string(pqErr.Code)
		}
	}
	return "storage error"
}

// IsRetryable reports whether a ErrTransferFailed cause is a transient conflict that a
// caller may retry as a whole operation.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgSerializationFailure || code == pgDeadlockDetected
	}
	return false
}
