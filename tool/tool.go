package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/sqlpilot/core"
	"github.com/hupe1980/sqlpilot/internal/util"
	"github.com/hupe1980/sqlpilot/warehouse"
)

// Kind identifies one of the fixed data-access tools.
type Kind int

const (
	// KindListSchemas lists the schemas of the warehouse.
	KindListSchemas Kind = iota
	// KindListTables lists tables and views of a schema.
	KindListTables
	// KindDescribeTable describes the columns of a table.
	KindDescribeTable
	// KindSampleData returns sample rows from a table.
	KindSampleData
	// KindExecuteQuery runs arbitrary SQL.
	KindExecuteQuery
)

// Kinds lists every tool kind in declaration order.
var Kinds = []Kind{KindListSchemas, KindListTables, KindDescribeTable, KindSampleData, KindExecuteQuery}

// String returns the wire name of the tool as declared to the model.
func (k Kind) String() string {
	switch k {
	case KindListSchemas:
		return "list_schemas"
	case KindListTables:
		return "list_tables"
	case KindDescribeTable:
		return "describe_table"
	case KindSampleData:
		return "sample_data"
	case KindExecuteQuery:
		return "execute_query"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// KindFromName resolves a wire name back to its Kind.
func KindFromName(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Declaration describes one tool to the model: wire name, natural-language
// description and a JSON schema for its arguments.
type Declaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is the outcome of a successful tool invocation: the JSON-
// serializable payload returned to the model verbatim, plus bookkeeping the
// agent uses for source attribution and error memory.
type Result struct {
	Kind    Kind
	Payload any
	// Source attributes the invocation to a table or query; nil for catalog
	// listings that touch no specific table.
	Source core.Source
	// QueryError is set when execute_query ran but the engine rejected the
	// SQL; the payload then carries the error value for the model while the
	// agent records it in the session's error memory.
	QueryError *core.QueryError
}

// Warehouse is the narrow data-layer contract the registry dispatches to.
// *warehouse.Warehouse satisfies it; tests substitute a stub.
type Warehouse interface {
	ListSchemas(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]warehouse.Table, error)
	DescribeTable(ctx context.Context, schema, table string) ([]warehouse.Column, error)
	SampleRows(ctx context.Context, schema, table string, limit int) (*warehouse.Sample, error)
	ExecuteQuery(ctx context.Context, sql string) (*warehouse.QueryResult, error)
}

// ValidationError re-exports the argument validation failure type.
type ValidationError = util.ValidationError

// Error codes attached to *ToolError.
const (
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeInvalidArgs     = "VALIDATION_ERROR"
	CodeExecutionFailed = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool dispatch or execution.
// The agent treats every ToolError as model-correctable: it is reported back
// as a tool result, never allowed to end the question.
type ToolError struct {
	Tool    string `json:"tool"`              // Name the model asked for
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
