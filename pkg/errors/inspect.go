package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres holds the server-side fields of a driver error. Both pgx (gorm's
// driver) and lib/pq (goose migrations) errors are recognised.
type Postgres struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Trace is the log-only view of an error; none of it is sent to clients.
type Trace struct {
	Message  string
	Code     Code
	Chain    []string
	Postgres *Postgres
}

func Inspect(err error) Trace {
	if err == nil {
		return Trace{}
	}
	tr := Trace{Message: err.Error()}
	if typed := As(err); typed != nil {
		tr.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		tr.Chain = append(tr.Chain, fmt.Sprintf("%T", e))
	}
	tr.Postgres = postgresCause(err)
	return tr
}

func postgresCause(err error) *Postgres {
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		return &Postgres{
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return &Postgres{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields flattens the trace for structured logging, omitting empty values.
func (t Trace) Fields() map[string]any {
	fields := map[string]any{"error_chain": t.Chain}
	if t.Code != "" {
		fields["error_code"] = string(t.Code)
	}
	if pg := t.Postgres; pg != nil {
		for k, v := range map[string]string{
			"pg_code":       pg.Code,
			"pg_constraint": pg.Constraint,
			"pg_table":      pg.Table,
			"pg_column":     pg.Column,
			"pg_detail":     pg.Detail,
			"pg_message":    pg.Message,
		} {
			if v != "" {
				fields[k] = v
			}
		}
	}
	return fields
}
