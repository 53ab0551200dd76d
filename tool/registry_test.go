package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/sqlpilot/core"
	"github.com/hupe1980/sqlpilot/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWarehouse implements Warehouse with canned data.
type stubWarehouse struct {
	queryResult *warehouse.QueryResult
	failWith    error
	lastLimit   int
}

func (s *stubWarehouse) ListSchemas(context.Context) ([]string, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return []string{"raw", "staging", "marts"}, nil
}

func (s *stubWarehouse) ListTables(_ context.Context, schema string) ([]warehouse.Table, error) {
	count := int64(42)
	return []warehouse.Table{{Name: "orders", Kind: "BASE TABLE", RowCount: &count}}, nil
}

func (s *stubWarehouse) DescribeTable(_ context.Context, schema, table string) ([]warehouse.Column, error) {
	return []warehouse.Column{{Name: "id", Type: "INTEGER", Nullable: false}}, nil
}

func (s *stubWarehouse) SampleRows(_ context.Context, schema, table string, limit int) (*warehouse.Sample, error) {
	s.lastLimit = limit
	return &warehouse.Sample{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}, nil
}

func (s *stubWarehouse) ExecuteQuery(_ context.Context, sql string) (*warehouse.QueryResult, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.queryResult, nil
}

func newTestRegistry(t *testing.T, wh Warehouse) *Registry {
	t.Helper()
	r, err := NewRegistry(wh)
	require.NoError(t, err)
	return r
}

func TestRegistry_Declarations(t *testing.T) {
	r := newTestRegistry(t, &stubWarehouse{})
	decls := r.Declarations()
	require.Len(t, decls, len(Kinds))

	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"list_schemas", "list_tables", "describe_table", "sample_data", "execute_query"}, names)

	// list_tables requires the schema argument.
	var listTables Declaration
	for _, d := range decls {
		if d.Name == "list_tables" {
			listTables = d
		}
	}
	req, _ := listTables.Parameters["required"].([]string)
	assert.Contains(t, req, "schema")
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := newTestRegistry(t, &stubWarehouse{})
	_, err := r.Invoke(context.Background(), "drop_database", "{}")
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeUnknownTool, toolErr.Code)
}

func TestRegistry_InvalidArguments(t *testing.T) {
	r := newTestRegistry(t, &stubWarehouse{})

	// Missing required field.
	_, err := r.Invoke(context.Background(), "list_tables", "{}")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeInvalidArgs, toolErr.Code)

	// Malformed JSON.
	_, err = r.Invoke(context.Background(), "list_tables", "{schema")
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeInvalidArgs, toolErr.Code)

	// Wrong type.
	_, err = r.Invoke(context.Background(), "execute_query", `{"sql": 7}`)
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeInvalidArgs, toolErr.Code)
}

func TestRegistry_ListSchemas(t *testing.T) {
	r := newTestRegistry(t, &stubWarehouse{})
	res, err := r.Invoke(context.Background(), "list_schemas", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw", "staging", "marts"}, res.Payload)
	assert.Nil(t, res.Source)
}

func TestRegistry_DescribeTable_Source(t *testing.T) {
	r := newTestRegistry(t, &stubWarehouse{})
	res, err := r.Invoke(context.Background(), "describe_table", `{"schema":"marts","table":"dim_products"}`)
	require.NoError(t, err)
	assert.Equal(t, core.TableSource{Schema: "marts", Table: "dim_products"}, res.Source)
}

func TestRegistry_SampleData_LimitForwarded(t *testing.T) {
	wh := &stubWarehouse{}
	r := newTestRegistry(t, wh)

	_, err := r.Invoke(context.Background(), "sample_data", `{"schema":"raw","table":"orders","limit":3}`)
	require.NoError(t, err)
	assert.Equal(t, 3, wh.lastLimit)

	// Omitted limit reaches the warehouse as zero (its default applies).
	_, err = r.Invoke(context.Background(), "sample_data", `{"schema":"raw","table":"orders"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, wh.lastLimit)
}

func TestRegistry_ExecuteQuery_Success(t *testing.T) {
	wh := &stubWarehouse{queryResult: &warehouse.QueryResult{
		Columns:  []string{"n"},
		Rows:     [][]any{{int64(3)}},
		RowCount: 1,
	}}
	r := newTestRegistry(t, wh)

	res, err := r.Invoke(context.Background(), "execute_query", `{"sql":"SELECT COUNT(*) AS n FROM raw.orders"}`)
	require.NoError(t, err)
	assert.Equal(t, core.QuerySource{SQL: "SELECT COUNT(*) AS n FROM raw.orders", RowCount: 1}, res.Source)
	assert.Nil(t, res.QueryError)
}

func TestRegistry_ExecuteQuery_ErrorValue(t *testing.T) {
	wh := &stubWarehouse{queryResult: &warehouse.QueryResult{Error: "no such column: bogus"}}
	r := newTestRegistry(t, wh)

	res, err := r.Invoke(context.Background(), "execute_query", `{"sql":"SELECT bogus"}`)
	require.NoError(t, err, "an engine error value is a successful invocation")

	assert.Equal(t, map[string]any{"error": "no such column: bogus"}, res.Payload)
	require.NotNil(t, res.QueryError)
	assert.Equal(t, "SELECT bogus", res.QueryError.SQL)
	assert.Nil(t, res.Source, "failed queries are not sources")
}

func TestRegistry_WarehouseFailure(t *testing.T) {
	wh := &stubWarehouse{failWith: errors.New("connection refused")}
	r := newTestRegistry(t, wh)

	_, err := r.Invoke(context.Background(), "list_schemas", "")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecutionFailed, toolErr.Code)
	assert.Contains(t, toolErr.Message, "connection refused")
}
