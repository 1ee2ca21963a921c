package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error chain, including any Postgres fields.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

type pgFields struct {
	code       string
	constraint string
	table      string
	detail     string
	message    string
}

func pgFieldsOf(err error) (pgFields, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgFields{
			code:       pgxErr.Code,
			constraint: pgxErr.ConstraintName,
			table:      pgxErr.TableName,
			detail:     pgxErr.Detail,
			message:    pgxErr.Message,
		}, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgFields{
			code:       string(pqErr.Code),
			constraint: pqErr.Constraint,
			table:      pqErr.Table,
			detail:     pqErr.Detail,
			message:    pqErr.Message,
		}, true
	}
	return pgFields{}, false
}

// PGCode returns the SQLSTATE and constraint name of the first Postgres error
// in the chain, or empty strings when there is none.
func PGCode(err error) (code, constraint string) {
	fields, ok := pgFieldsOf(err)
	if !ok {
		return "", ""
	}
	return fields.code, fields.constraint
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if fields, ok := pgFieldsOf(err); ok {
		d.PGCode = fields.code
		d.PGConstraint = fields.constraint
		d.PGTable = fields.table
		d.PGDetail = fields.detail
		d.PGMessage = fields.message
	}
	return d
}
