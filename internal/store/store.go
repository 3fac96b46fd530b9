package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Sentinel errors returned by store functions.
var (
	ErrNotFound      = errors.New("not found")
	ErrOwnerConflict = errors.New("owner does not match expected owner")
	ErrNotPending    = errors.New("record is no longer pending")
	ErrDuplicate     = errors.New("duplicate value")
)

// Querier is the subset of *sql.DB and *sql.Tx used by functions that may run
// inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// nullString maps an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint or
// unique index.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
