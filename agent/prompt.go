package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/sqlpilot/core"
)

// systemPrompt builds the per-turn system instructions: static analyst
// guidance parameterized by SQL dialect, followed by the session's failed
// queries so the model does not repeat past mistakes. Query-error memory is
// surfaced here instead of being replayed as messages, keeping history lean.
func systemPrompt(dialect string, queryErrors []core.QueryError) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a data analyst agent with access to a %s data warehouse.
Your job is to answer user questions by exploring the schema and running SQL queries.

## Workflow
1. List available schemas to understand the database structure.
2. List tables in the most relevant schema(s).
3. Describe table columns to understand the data model.
4. Optionally sample a few rows to see real values.
5. Write and execute SQL to answer the question.
6. Return a clear, concise natural-language answer with key numbers.

## Rules
- Always explore the schema first. Never assume table or column names.
- Use %s SQL syntax.
- If a query errors, read the message, adjust, and retry.
- Format numbers for readability (commas, 2 decimal places for money).
- If the data cannot answer the question, say so clearly.
`, dialect, dialect)

	if block := renderQueryErrors(queryErrors); block != "" {
		b.WriteString("\n")
		b.WriteString(block)
	}
	return b.String()
}

// renderQueryErrors summarizes the session's failed queries for the system
// prompt. Returns "" when nothing failed yet.
func renderQueryErrors(errs []core.QueryError) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Failed queries in this session\n")
	b.WriteString("These queries already failed. Read the error messages and avoid the same mistakes.\n")
	for _, qe := range errs {
		fmt.Fprintf(&b, "- SQL: %s\n  Error: %s\n", qe.SQL, qe.Message)
	}
	return b.String()
}

// StepText renders a short progress line for one tool call, suitable for a
// stderr activity trace. Long SQL is truncated for display only.
func StepText(toolName string, args map[string]any) string {
	switch toolName {
	case "list_schemas":
		return "> Exploring database schemas..."
	case "list_tables":
		return fmt.Sprintf("> Listing tables in '%v'...", args["schema"])
	case "describe_table":
		return fmt.Sprintf("> Describing %v.%v...", args["schema"], args["table"])
	case "sample_data":
		return fmt.Sprintf("> Sampling data from %v.%v...", args["schema"], args["table"])
	case "execute_query":
		sql, _ := args["sql"].(string)
		if len(sql) > 120 {
			sql = sql[:117] + "..."
		}
		return fmt.Sprintf("> Executing: %s", sql)
	default:
		return fmt.Sprintf("> Calling %s...", toolName)
	}
}
