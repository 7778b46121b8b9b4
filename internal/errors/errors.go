package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type used across the engine. Code is one of
// the constants in codes.go; Detail and Hint are optional extra context.
type Error struct {
	Code    string // machine-readable code
	Message string // primary error message
	Detail  string // optional detailed error message
	Hint    string // optional hint message
	Table   string // table name if applicable
	Column  string // column name if applicable
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s DETAIL: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithTable sets the table name
func (e *Error) WithTable(table string) *Error {
	e.Table = table
	return e
}

// WithColumn sets the column name
func (e *Error) WithColumn(column string) *Error {
	e.Column = column
	return e
}

// Common error constructors

// UnknownIdentifierError reports an identifier that resolved to nothing.
func UnknownIdentifierError(name string) *Error {
	return Newf(UnknownIdentifier, "identifier %q does not exist", name).WithColumn(name)
}

// AmbiguousIdentifierError reports an identifier with multiple candidates.
func AmbiguousIdentifierError(name string) *Error {
	return Newf(AmbiguousIdentifier, "identifier %q is ambiguous", name).WithColumn(name)
}

// TypeMismatchError reports incompatible operand types in a predicate.
func TypeMismatchError(left, right string) *Error {
	return Newf(TypeMismatch, "cannot compare %s with %s", left, right).
		WithHint("rewrite or cast the expression")
}

// AggregateMisuseError reports an aggregate outside an aggregation context.
func AggregateMisuseError(expression string) *Error {
	return Newf(AggregateMisuse, "aggregate %q not allowed here", expression)
}

// RenamingArityError reports a column rename list of the wrong length.
func RenamingArityError(want, got int) *Error {
	return Newf(RenamingArity, "table has %d columns but %d names were given", want, got)
}

// UnknownTableError reports a table missing from the catalog.
func UnknownTableError(name string) *Error {
	return Newf(UnknownIdentifier, "table %q does not exist", name).WithTable(name)
}

// ColumnNotFoundError reports a runtime column lookup failure.
func ColumnNotFoundError(name string) *Error {
	return Newf(ColumnNotFound, "column %q not found", name).WithColumn(name)
}

// OverflowError reports a runtime numeric overflow.
func OverflowError(typeName string) *Error {
	return Newf(Overflow, "value out of range for type %s", typeName)
}

// TransactionAbortedError marks the expected short-circuit of an aborted
// transaction. Not a failure from the operator's view.
func TransactionAbortedError() *Error {
	return New(TransactionAborted, "transaction was aborted")
}

// TransactionConflictError reports a write-write conflict.
func TransactionConflictError(table string) *Error {
	return Newf(TransactionConflict, "row in table %q was modified concurrently", table).WithTable(table)
}

// SchedulerShutdownError reports a schedule call after Finish.
func SchedulerShutdownError() *Error {
	return New(SchedulerShutdown, "scheduler is shut down")
}

// OptimizerInvariantError reports a broken optimizer invariant. These are
// bugs; callers panic with them.
func OptimizerInvariantError(format string, args ...any) *Error {
	return Newf(OptimizerInvariant, format, args...)
}

// InternalErrorf creates an internal error
func InternalErrorf(format string, args ...any) *Error {
	return Newf(InternalError, format, args...)
}

// Is checks if an error is an Ember Error with a specific code
func Is(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// GetError attempts to extract an Ember Error from any error
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalErrorf("%v", err)
}
