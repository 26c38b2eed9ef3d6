package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain, plus any postgres driver detail, for logging.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// pgInfo is the driver-neutral subset of a postgres error. Both pgx (gorm's
// postgres driver) and lib/pq (goose migrations) can surface here.
type pgInfo struct {
	code, constraint, table, column, detail, message string
}

func postgresInfo(err error) (pgInfo, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgInfo{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgInfo{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message}, true
	}
	return pgInfo{}, false
}

// PGCode returns the SQLSTATE carried by a pgx or lib/pq error, if any.
func PGCode(err error) string {
	info, _ := postgresInfo(err)
	return info.code
}

// PGConstraint returns the constraint a postgres error names, if any.
func PGConstraint(err error) string {
	info, _ := postgresInfo(err)
	return info.constraint
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if info, ok := postgresInfo(err); ok {
		d.PGCode = info.code
		d.PGConstraint = info.constraint
		d.PGTable = info.table
		d.PGColumn = info.column
		d.PGDetail = info.detail
		d.PGMessage = info.message
	}
	return d
}
