// Package warehouse is a thin, fully generic data layer over a SQL warehouse
// reachable through database/sql. It discovers schemas, tables and columns
// dynamically so it works against any warehouse, not a particular data model.
//
// Engine differences (introspection queries, identifier quoting, placeholder
// style) are isolated behind the Dialect interface; Postgres, MySQL and
// SQLite dialects ship with the package. SQL execution errors are returned as
// result values rather than Go errors so the agent can forward them to the
// model as corrective feedback.
package warehouse
