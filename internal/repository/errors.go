package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// wrap annotates err with op and marks transient failures as
// domain.ErrStorageUnavailable.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return &domain.StorageError{Op: op, Err: err}
	}
	return errors.Wrap(err, op)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientSQLState(string(pqErr.Code))
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// transientSQLState covers connection exceptions (class 08), serialization
// failures, deadlocks and admin/crash shutdowns.
func transientSQLState(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case "40001", "40P01", "57P01", "57P02", "57P03", "53300":
		return true
	}
	return false
}
