package warehouse

import (
	"context"
	"database/sql"
)

// Dialect isolates per-engine differences in catalog introspection and
// identifier quoting. Implementations must exclude engine-internal schemas
// from Schemas so the model only sees user data.
type Dialect interface {
	// Name identifies the dialect ("postgres", "mysql", "sqlite") and is
	// interpolated into the agent's instructions so the model writes SQL in
	// the right syntax.
	Name() string

	// Schemas lists user-created schemas.
	Schemas(ctx context.Context, db *sql.DB) ([]string, error)

	// Tables lists tables and views of a schema without row counts; the
	// warehouse layer adds counts on top.
	Tables(ctx context.Context, db *sql.DB, schema string) ([]Table, error)

	// Columns describes a table's columns in physical column order.
	Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error)

	// QuoteIdent quotes a single identifier for interpolation.
	QuoteIdent(name string) string
}

// Table describes one table or view of a schema. RowCount is nil when the
// count could not be determined (e.g. insufficient privileges).
type Table struct {
	Name     string `json:"name"`
	Kind     string `json:"type"` // BASE TABLE or VIEW
	RowCount *int64 `json:"row_count"`
}

// Column describes one column of a table.
type Column struct {
	Name     string `json:"column"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// qualify joins a quoted schema and table reference.
func qualify(d Dialect, schema, table string) string {
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}
