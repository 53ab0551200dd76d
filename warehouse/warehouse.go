package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hupe1980/sqlpilot/logging"
)

// Options configures a Warehouse.
type Options struct {
	// SampleLimit is the number of sample rows returned when the caller does
	// not specify one.
	SampleLimit int
	// MaxSampleLimit is the hard clamp applied to requested sample sizes.
	// Requests above it are silently reduced, never rejected.
	MaxSampleLimit int
	// QueryRowCap bounds the rows returned by ExecuteQuery. Results beyond
	// the cap are counted but not returned.
	QueryRowCap int
	// Logger receives debug-level query logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Warehouse exposes typed introspection and query execution over a SQL
// database. It holds no catalog cache: the warehouse may change between
// questions, so every operation re-reads the live catalog.
type Warehouse struct {
	db      *sql.DB
	dialect Dialect
	opts    Options
}

// New wraps an open database handle. The caller keeps ownership of db unless
// the Warehouse was created via Open.
func New(db *sql.DB, dialect Dialect, optFns ...func(o *Options)) *Warehouse {
	opts := Options{
		SampleLimit:    5,
		MaxSampleLimit: 10,
		QueryRowCap:    100,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Warehouse{db: db, dialect: dialect, opts: opts}
}

// Open opens a database/sql connection and wraps it. The driver must be
// registered by the caller (import the driver package for side effects).
func Open(driverName, dsn string, dialect Dialect, optFns ...func(o *Options)) (*Warehouse, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, newError("open", err.Error(), err)
	}
	return New(db, dialect, optFns...), nil
}

// Close closes the underlying database handle.
func (w *Warehouse) Close() error { return w.db.Close() }

// Ping verifies connectivity.
func (w *Warehouse) Ping(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return newError("ping", err.Error(), err)
	}
	return nil
}

// Dialect returns the dialect the warehouse was opened with.
func (w *Warehouse) Dialect() Dialect { return w.dialect }

// ListSchemas lists user-created schemas, excluding engine internals.
func (w *Warehouse) ListSchemas(ctx context.Context) ([]string, error) {
	schemas, err := w.dialect.Schemas(ctx, w.db)
	if err != nil {
		return nil, newError("list_schemas", err.Error(), err)
	}
	return schemas, nil
}

// ListTables lists tables and views of a schema with row counts. It fails
// with ErrSchemaNotFound when the schema does not exist.
func (w *Warehouse) ListTables(ctx context.Context, schema string) ([]Table, error) {
	tables, err := w.dialect.Tables(ctx, w.db, schema)
	if err != nil {
		return nil, newError("list_tables", err.Error(), err)
	}
	if len(tables) == 0 {
		if exists, err := w.schemaExists(ctx, schema); err != nil {
			return nil, newError("list_tables", err.Error(), err)
		} else if !exists {
			return nil, newError("list_tables", fmt.Sprintf("schema %q does not exist", schema), ErrSchemaNotFound)
		}
	}

	for i := range tables {
		tables[i].RowCount = w.countRows(ctx, schema, tables[i].Name)
	}
	return tables, nil
}

// DescribeTable returns column names, types and nullability in physical
// column order. It fails with ErrTableNotFound when the table does not exist.
func (w *Warehouse) DescribeTable(ctx context.Context, schema, table string) ([]Column, error) {
	columns, err := w.dialect.Columns(ctx, w.db, schema, table)
	if err != nil {
		return nil, newError("describe_table", err.Error(), err)
	}
	if len(columns) == 0 {
		return nil, newError("describe_table", fmt.Sprintf("table %q not found in schema %q", table, schema), ErrTableNotFound)
	}
	return columns, nil
}

// Sample holds sample rows of a table.
type Sample struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// SampleRows returns up to limit rows from a table. A non-positive limit
// falls back to the configured default; requests above the maximum are
// silently clamped.
func (w *Warehouse) SampleRows(ctx context.Context, schema, table string, limit int) (*Sample, error) {
	if !validIdentifier(schema) || !validIdentifier(table) {
		return nil, newError("sample_data", fmt.Sprintf("invalid identifier: %s.%s", schema, table), ErrInvalidIdentifier)
	}
	if limit <= 0 {
		limit = w.opts.SampleLimit
	}
	if limit > w.opts.MaxSampleLimit {
		limit = w.opts.MaxSampleLimit
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", qualify(w.dialect, schema, table), limit)
	w.opts.Logger.Debug("warehouse.sample", "schema", schema, "table", table, "limit", limit)

	columns, rowValues, _, err := w.scanAll(ctx, query, limit)
	if err != nil {
		return nil, newError("sample_data", err.Error(), err)
	}
	return &Sample{Columns: columns, Rows: rowValues}, nil
}

// QueryResult is the outcome of ExecuteQuery. Exactly one of the two shapes
// is populated: a successful result (Columns/Rows/RowCount) or an Error
// message from the engine. RowCount is the total number of rows the query
// produced, which exceeds len(Rows) when Truncated is set.
type QueryResult struct {
	Columns   []string `json:"columns,omitempty"`
	Rows      [][]any  `json:"rows,omitempty"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
	Note      string   `json:"note,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Failed reports whether the query produced an engine error.
func (r *QueryResult) Failed() bool { return r.Error != "" }

// ExecuteQuery runs arbitrary SQL and caps the returned rows. SQL errors are
// returned as a QueryResult value with Error set, never as a Go error — the
// agent forwards them to the model as corrective feedback. Only context
// cancellation escapes as an error.
func (w *Warehouse) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	w.opts.Logger.Debug("warehouse.query", "sql", query)

	columns, rowValues, total, err := w.scanAll(ctx, query, w.opts.QueryRowCap)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newError("execute_query", ctx.Err().Error(), ctx.Err())
		}
		return &QueryResult{Error: err.Error()}, nil
	}

	res := &QueryResult{Columns: columns, Rows: rowValues, RowCount: total}
	if total > len(rowValues) {
		res.Truncated = true
		res.Note = fmt.Sprintf("Showing %d of %d rows. Refine your query for full results.", len(rowValues), total)
	}
	return res, nil
}

// scanAll executes a query and scans up to max rows, continuing to count
// rows beyond the cap without retaining them.
func (w *Warehouse) scanAll(ctx context.Context, query string, max int) (columns []string, values [][]any, total int, err error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, 0, err
	}
	defer rows.Close()

	columns, err = rows.Columns()
	if err != nil {
		return nil, nil, 0, err
	}

	scan := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range scan {
		ptrs[i] = &scan[i]
	}

	for rows.Next() {
		total++
		if total > max {
			continue // keep counting, drop the values
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, 0, err
		}
		row := make([]any, len(columns))
		for i, v := range scan {
			row[i] = normalizeValue(v)
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, 0, err
	}
	return columns, values, total, nil
}

// countRows returns COUNT(*) for a table, or nil when it cannot be counted.
func (w *Warehouse) countRows(ctx context.Context, schema, table string) *int64 {
	if !validIdentifier(schema) || !validIdentifier(table) {
		return nil
	}
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", qualify(w.dialect, schema, table))
	if err := w.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return nil
	}
	return &count
}

// schemaExists checks schema membership via the dialect's schema listing.
func (w *Warehouse) schemaExists(ctx context.Context, schema string) (bool, error) {
	schemas, err := w.dialect.Schemas(ctx, w.db)
	if err != nil {
		return false, err
	}
	for _, s := range schemas {
		if s == schema {
			return true, nil
		}
	}
	return false, nil
}
