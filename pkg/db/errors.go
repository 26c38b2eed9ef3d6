package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// A non-empty constraintName narrows the match to that constraint (or, on
// sqlite, to an index/column named in the message).
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		if c := pkgerrors.PGConstraint(err); c != "" {
			return c == constraintName
		}
		return strings.Contains(msg, constraintName)
	}
	if pkgerrors.PGCode(err) == pgUniqueViolation {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsCheckViolation reports whether a CHECK constraint rejected the write.
// Postgres surfaces SQLSTATE 23514; sqlite only reports it in the message.
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.PGCode(err) == pgCheckViolation {
		return true
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}
