// Package tool declares the fixed data-access tool surface exposed to the
// model and dispatches invocations to the warehouse.
//
// The tool set is closed: a Kind enumerates the five data tools
// (list_schemas, list_tables, describe_table, sample_data, execute_query) and
// the Registry constructor fails if any kind lacks a handler, so the
// declaration list handed to the model can never drift from what is actually
// dispatchable. Unknown tool names and invalid arguments surface as
// *ToolError values the agent reports back to the model rather than crashes.
package tool
