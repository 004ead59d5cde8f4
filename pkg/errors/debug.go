package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Fields flattens an error into structured log fields: the top message, the
// wrap chain, and Postgres driver detail when either driver produced it.
func Fields(err error) map[string]any {
	if err == nil {
		return nil
	}

	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		addPGFields(fields, pgxErr.Code, pgxErr.Message, pgxErr.Detail, pgxErr.TableName, pgxErr.ColumnName, pgxErr.ConstraintName)
		return fields
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		addPGFields(fields, string(pqErr.Code), pqErr.Message, pqErr.Detail, pqErr.Table, pqErr.Column, pqErr.Constraint)
	}
	return fields
}

func addPGFields(fields map[string]any, code, message, detail, table, column, constraint string) {
	fields["pg_code"] = code
	fields["pg_message"] = message
	if detail != "" {
		fields["pg_detail"] = detail
	}
	if table != "" {
		fields["pg_table"] = table
	}
	if column != "" {
		fields["pg_column"] = column
	}
	if constraint != "" {
		fields["pg_constraint"] = constraint
	}
}
