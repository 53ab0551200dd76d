package warehouse

import (
	"context"
	"database/sql"
)

// MySQLDialect introspects via information_schema using MySQL placeholder and
// quoting conventions.
type MySQLDialect struct{}

// Name implements Dialect.
func (MySQLDialect) Name() string { return "mysql" }

// Schemas implements Dialect.
func (MySQLDialect) Schemas(ctx context.Context, db *sql.DB) ([]string, error) {
	const q = `
		SELECT DISTINCT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY schema_name`
	return scanStrings(ctx, db, q)
}

// Tables implements Dialect.
func (MySQLDialect) Tables(ctx context.Context, db *sql.DB, schema string) ([]Table, error) {
	const q = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name`
	return scanTables(ctx, db, q, schema)
}

// Columns implements Dialect.
func (MySQLDialect) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`
	return scanColumns(ctx, db, q, schema, table)
}

// QuoteIdent implements Dialect.
func (MySQLDialect) QuoteIdent(name string) string { return "`" + name + "`" }
