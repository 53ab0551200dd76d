package warehouse

import (
	"context"
	"database/sql"
)

// PostgresDialect introspects via information_schema. It works for Postgres
// and Postgres-compatible engines (Redshift, DuckDB's pg_catalog emulation).
type PostgresDialect struct{}

// Name implements Dialect.
func (PostgresDialect) Name() string { return "postgres" }

// Schemas implements Dialect.
func (PostgresDialect) Schemas(ctx context.Context, db *sql.DB) ([]string, error) {
	const q = `
		SELECT DISTINCT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY schema_name`
	return scanStrings(ctx, db, q)
}

// Tables implements Dialect.
func (PostgresDialect) Tables(ctx context.Context, db *sql.DB, schema string) ([]Table, error) {
	const q = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`
	return scanTables(ctx, db, q, schema)
}

// Columns implements Dialect.
func (PostgresDialect) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`
	return scanColumns(ctx, db, q, schema, table)
}

// QuoteIdent implements Dialect.
func (PostgresDialect) QuoteIdent(name string) string { return `"` + name + `"` }

// scanStrings runs a single-column query into a string slice.
func scanStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// scanTables runs a (name, kind) query into Table records.
func scanTables(ctx context.Context, db *sql.DB, query string, args ...any) ([]Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.Kind); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanColumns runs a (name, type, is_nullable) query into Column records,
// converting information_schema's YES/NO nullability convention.
func scanColumns(ctx context.Context, db *sql.DB, query string, args ...any) ([]Column, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		out = append(out, c)
	}
	return out, rows.Err()
}
