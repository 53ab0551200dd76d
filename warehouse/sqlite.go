package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteDialect introspects via sqlite_master and table-valued PRAGMA
// functions. SQLite models "schemas" as attached databases: the main file is
// schema "main" and additional files appear under their ATTACH alias.
//
// ATTACH state is per connection, so a warehouse spanning several attached
// databases must limit the pool to a single connection
// (db.SetMaxOpenConns(1)).
type SQLiteDialect struct{}

// Name implements Dialect.
func (SQLiteDialect) Name() string { return "sqlite" }

// Schemas implements Dialect.
func (SQLiteDialect) Schemas(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA database_list`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var seq int
		var name, file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err
		}
		if name.String == "temp" {
			continue
		}
		out = append(out, name.String)
	}
	return out, rows.Err()
}

// Tables implements Dialect. The schema name cannot be bound as a parameter
// in the FROM clause, so it is validated and quoted before interpolation.
// Membership is checked against PRAGMA database_list first: selecting from
// "<schema>".sqlite_master errors outright on a missing attached database,
// which would otherwise surface as an opaque driver error instead of the
// not-found classification.
func (d SQLiteDialect) Tables(ctx context.Context, db *sql.DB, schema string) ([]Table, error) {
	if !validIdentifier(schema) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, schema)
	}

	schemas, err := d.Schemas(ctx, db)
	if err != nil {
		return nil, err
	}
	attached := false
	for _, s := range schemas {
		if s == schema {
			attached = true
			break
		}
	}
	if !attached {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT name, type
		FROM %s.sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%%'
		ORDER BY name`, d.QuoteIdent(schema))

	tables, err := scanTables(ctx, db, q)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		tables[i].Kind = normalizeSQLiteKind(tables[i].Kind)
	}
	return tables, nil
}

// Columns implements Dialect.
func (SQLiteDialect) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error) {
	const q = `
		SELECT name, type, "notnull"
		FROM pragma_table_info(?, ?)
		ORDER BY cid`
	rows, err := db.QueryContext(ctx, q, table, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		var notNull int
		if err := rows.Scan(&c.Name, &c.Type, &notNull); err != nil {
			return nil, err
		}
		c.Nullable = notNull == 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// QuoteIdent implements Dialect.
func (SQLiteDialect) QuoteIdent(name string) string { return `"` + name + `"` }

// normalizeSQLiteKind maps sqlite_master object types onto the
// information_schema vocabulary used by the other dialects.
func normalizeSQLiteKind(kind string) string {
	switch strings.ToLower(kind) {
	case "view":
		return "VIEW"
	default:
		return "BASE TABLE"
	}
}
