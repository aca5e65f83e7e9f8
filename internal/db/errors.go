// Package db provides the document store behind the resource API: models,
// documents, the Postgres adapter and the pool that backs it.
package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Standard errors for store operations. Check them with errors.Is.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate indicates a unique index violation.
	ErrDuplicate = errors.New("duplicate document")

	// ErrImmutable indicates a mutation on a model that refuses it.
	ErrImmutable = errors.New("resource is immutable")

	// ErrUnknownResource indicates a resource name with no registered model.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrUnsafeDrop indicates DropAll was refused for a non-test database.
	ErrUnsafeDrop = errors.New("refusing to drop a database not marked for tests")
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsNotFound returns true if the error indicates no document or row was found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports whether err carries a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
