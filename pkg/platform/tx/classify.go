package tx

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"fieldops/pkg/platform/sentinel"
)

// Postgres error codes that mean "another writer won; retry the unit of work".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// Classify wraps Postgres serialization failures, deadlocks and lock
// timeouts as sentinel.ErrConflict. Other errors pass through unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %s (%s)", sentinel.ErrConflict, pgErr.Message, pgErr.Code)
		}
	}
	return err
}
