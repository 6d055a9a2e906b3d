package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of a failure. It never reaches clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
}

// Dump walks the unwrap chain and lifts Postgres fields from whichever
// driver produced them (pgx for gorm, pq for goose).
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	dump := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		dump.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		dump.Chain = append(dump.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		dump.PGCode, dump.PGConstraint = pgxErr.Code, pgxErr.ConstraintName
		dump.PGTable, dump.PGDetail = pgxErr.TableName, pgxErr.Detail
	case errors.As(err, &pqErr):
		dump.PGCode, dump.PGConstraint = string(pqErr.Code), pqErr.Constraint
		dump.PGTable, dump.PGDetail = pqErr.Table, pqErr.Detail
	}
	return dump
}
