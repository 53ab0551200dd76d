package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/sqlpilot/core"
	"github.com/hupe1980/sqlpilot/internal/util"
	"github.com/hupe1980/sqlpilot/logging"
)

// Argument structs drive the JSON schemas declared to the model. Required
// fields are plain values; optional ones are omitempty pointers.
type listTablesArgs struct {
	Schema string `json:"schema" description:"Schema name to list tables from."`
}

type describeTableArgs struct {
	Schema string `json:"schema" description:"Schema name."`
	Table  string `json:"table" description:"Table name."`
}

type sampleDataArgs struct {
	Schema string `json:"schema" description:"Schema name."`
	Table  string `json:"table" description:"Table name."`
	Limit  *int   `json:"limit,omitempty" description:"Number of sample rows (max 10, default 5)."`
}

type executeQueryArgs struct {
	SQL string `json:"sql" description:"SQL query to execute."`
}

type handler func(ctx context.Context, args map[string]any) (*Result, error)

// Options configures a Registry.
type Options struct {
	// Logger receives per-invocation logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry holds the ordered tool declarations given to the model and the
// dispatch table mapping each Kind to its warehouse operation.
type Registry struct {
	wh       Warehouse
	decls    map[Kind]Declaration
	handlers map[Kind]handler
	logger   logging.Logger
}

// NewRegistry builds the registry for the full tool set. It fails if any
// declared kind ends up without a handler, so an incomplete dispatch table is
// caught at construction, not mid-conversation.
func NewRegistry(wh Warehouse, optFns ...func(o *Options)) (*Registry, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{
		wh:       wh,
		decls:    make(map[Kind]Declaration, len(Kinds)),
		handlers: make(map[Kind]handler, len(Kinds)),
		logger:   opts.Logger,
	}

	for _, kind := range Kinds {
		decl, h := r.build(kind)
		if h == nil {
			return nil, fmt.Errorf("tool registry: no handler for %s", kind)
		}
		r.decls[kind] = decl
		r.handlers[kind] = h
	}
	return r, nil
}

// build returns the declaration and handler for one kind. Adding a Kind
// without extending this switch yields a nil handler and a constructor error.
func (r *Registry) build(kind Kind) (Declaration, handler) {
	switch kind {
	case KindListSchemas:
		return Declaration{
			Name:        kind.String(),
			Description: "List all available schemas in the database.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		}, r.listSchemas
	case KindListTables:
		return Declaration{
			Name:        kind.String(),
			Description: "List all tables and views in a schema, including row counts.",
			Parameters:  util.CreateSchema(listTablesArgs{}),
		}, r.listTables
	case KindDescribeTable:
		return Declaration{
			Name:        kind.String(),
			Description: "Get column names, data types, and nullability for a table.",
			Parameters:  util.CreateSchema(describeTableArgs{}),
		}, r.describeTable
	case KindSampleData:
		return Declaration{
			Name:        kind.String(),
			Description: "Get sample rows from a table to understand the actual data values and format.",
			Parameters:  util.CreateSchema(sampleDataArgs{}),
		}, r.sampleData
	case KindExecuteQuery:
		return Declaration{
			Name:        kind.String(),
			Description: "Execute a read-only SQL query against the warehouse. Results capped at 100 rows.",
			Parameters:  util.CreateSchema(executeQueryArgs{}),
		}, r.executeQuery
	default:
		return Declaration{}, nil
	}
}

// Declarations returns the tool declarations in stable order.
func (r *Registry) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(Kinds))
	for _, kind := range Kinds {
		decls = append(decls, r.decls[kind])
	}
	return decls
}

// Invoke validates and dispatches one model-issued tool call. Dispatch
// failures come back as *ToolError: the caller reports them to the model as
// tool-result data instead of ending the question.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON string) (*Result, error) {
	kind, ok := KindFromName(name)
	if !ok {
		r.logger.Warn("tool.call.unknown", "tool", name)
		return nil, NewToolError(name, fmt.Sprintf("unknown tool: %s", name), CodeUnknownTool)
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, &ToolError{
				Tool:    name,
				Message: fmt.Sprintf("arguments are not valid JSON: %v", err),
				Code:    CodeInvalidArgs,
			}
		}
	}

	if err := util.ValidateParameters(args, r.decls[kind].Parameters); err != nil {
		r.logger.Warn("tool.call.validation_failed", "tool", name, "error", err.Error())
		return nil, &ToolError{
			Tool:    name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeInvalidArgs,
			Details: err,
		}
	}

	start := time.Now()
	r.logger.Debug("tool.call.start", "tool", name)

	result, err := r.handlers[kind](ctx, args)
	if err != nil {
		r.logger.Error("tool.call.error", "tool", name, "error", err.Error())
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeExecutionFailed}
	}

	r.logger.Info("tool.call.success", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (r *Registry) listSchemas(ctx context.Context, _ map[string]any) (*Result, error) {
	schemas, err := r.wh.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	if schemas == nil {
		schemas = []string{}
	}
	return &Result{Kind: KindListSchemas, Payload: schemas}, nil
}

func (r *Registry) listTables(ctx context.Context, args map[string]any) (*Result, error) {
	schema := stringArg(args, "schema")
	tables, err := r.wh.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindListTables, Payload: tables}, nil
}

func (r *Registry) describeTable(ctx context.Context, args map[string]any) (*Result, error) {
	schema, table := stringArg(args, "schema"), stringArg(args, "table")
	columns, err := r.wh.DescribeTable(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:    KindDescribeTable,
		Payload: columns,
		Source:  core.TableSource{Schema: schema, Table: table},
	}, nil
}

func (r *Registry) sampleData(ctx context.Context, args map[string]any) (*Result, error) {
	schema, table := stringArg(args, "schema"), stringArg(args, "table")
	sample, err := r.wh.SampleRows(ctx, schema, table, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:    KindSampleData,
		Payload: sample,
		Source:  core.TableSource{Schema: schema, Table: table},
	}, nil
}

func (r *Registry) executeQuery(ctx context.Context, args map[string]any) (*Result, error) {
	sql := stringArg(args, "sql")
	res, err := r.wh.ExecuteQuery(ctx, sql)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		// The query ran and produced an error value: forward it to the model
		// and let the agent remember the failure.
		return &Result{
			Kind:       KindExecuteQuery,
			Payload:    map[string]any{"error": res.Error},
			QueryError: &core.QueryError{SQL: sql, Message: res.Error},
		}, nil
	}
	return &Result{
		Kind:    KindExecuteQuery,
		Payload: res,
		Source:  core.QuerySource{SQL: sql, RowCount: res.RowCount},
	}, nil
}

// stringArg reads a string argument, returning "" when absent. Presence and
// types are already enforced by schema validation.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads an optional integer argument, tolerating the float64 values
// JSON decoding produces. Returns 0 when absent.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
