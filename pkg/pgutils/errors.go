// Package pgutils classifies PostgreSQL errors raised through either driver
// the module uses: pgx (store and bun writes) and bun's pgdriver (the
// migration CLI).
package pgutils

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	CodeNotNullViolation    = "23502"
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeCheckViolation      = "23514"
)

// Field identifiers of the PostgreSQL ErrorResponse message.
const (
	fieldCode       = 'C'
	fieldConstraint = 'n'
)

// Code returns the SQLSTATE carried by err, or "" when err did not come
// from the server.
func Code(err error) string {
	return field(err, fieldCode, func(e *pgconn.PgError) string { return e.Code })
}

// ConstraintName returns the violated constraint, or "".
func ConstraintName(err error) string {
	return field(err, fieldConstraint, func(e *pgconn.PgError) string { return e.ConstraintName })
}

func field(err error, k byte, fromPgx func(*pgconn.PgError) string) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromPgx(pgErr)
	}
	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return drvErr.Field(k)
	}
	return ""
}

func IsUniqueViolation(err error) bool     { return Code(err) == CodeUniqueViolation }
func IsForeignKeyViolation(err error) bool { return Code(err) == CodeForeignKeyViolation }
func IsNotNullViolation(err error) bool    { return Code(err) == CodeNotNullViolation }
func IsCheckViolation(err error) bool      { return Code(err) == CodeCheckViolation }
