package warehouse

import (
	"errors"
	"fmt"
)

// Sentinel errors for absent catalog objects. Wrapped inside *Error; test
// with errors.Is.
var (
	// ErrSchemaNotFound indicates the requested schema does not exist.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrTableNotFound indicates the requested table does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrInvalidIdentifier indicates a schema or table name that cannot be
	// safely interpolated into SQL.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Error is the structured failure produced at the data layer boundary. No
// raw driver error escapes the package unwrapped.
type Error struct {
	Op      string // Operation that failed (list_schemas, describe_table, ...)
	Message string // Human-readable description forwarded to the model
	Err     error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("warehouse %s: %s", e.Op, e.Message)
	}
	return "warehouse: " + e.Message
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

func newError(op, message string, err error) *Error {
	return &Error{Op: op, Message: message, Err: err}
}
