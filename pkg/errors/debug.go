package errors

import (
	stdErrors "errors"
	"fmt"

	pgconnv4 "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs. Postgres fields
// are filled from whichever driver produced the failure.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.fillPostgres(err)
	return d
}

func (d *ErrorDump) fillPostgres(err error) {
	var (
		pgx    *pgconn.PgError
		legacy *pgconnv4.PgError
		libpq  *pq.Error
	)
	switch {
	case stdErrors.As(err, &pgx):
		d.setPG(pgx.Code, pgx.ConstraintName, pgx.TableName, pgx.ColumnName, pgx.Detail, pgx.Message)
	case stdErrors.As(err, &legacy):
		d.setPG(legacy.Code, legacy.ConstraintName, legacy.TableName, legacy.ColumnName, legacy.Detail, legacy.Message)
	case stdErrors.As(err, &libpq):
		d.setPG(string(libpq.Code), libpq.Constraint, libpq.Table, libpq.Column, libpq.Detail, libpq.Message)
	}
}

func (d *ErrorDump) setPG(code, constraint, table, column, detail, message string) {
	d.PGCode = code
	d.PGConstraint = constraint
	d.PGTable = table
	d.PGColumn = column
	d.PGDetail = detail
	d.PGMessage = message
}
