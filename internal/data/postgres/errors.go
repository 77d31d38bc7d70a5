package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wallet-ledger/internal/domain/shared"
)

// PostgreSQL error codes the ledger reacts to
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// classify attaches the ledger error kind to contention and serialization
// failures. Other errors are returned unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, shared.ErrBusy) || errors.Is(err, shared.ErrConflict) {
		return err
	}
	switch pgCode(err) {
	case codeLockNotAvailable, codeQueryCanceled:
		return fmt.Errorf("%w: %w", shared.ErrBusy, err)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", shared.ErrConflict, err)
	}
	return err
}
