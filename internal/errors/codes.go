package errors

// Error codes group by failing stage. Parse and translation errors surface
// to the driver as the query result; optimizer errors are bugs and fatal;
// operator errors fail the query at runtime.
const (
	// Parse stage
	ParseError = "parse_error"

	// Translation stage
	UnknownIdentifier  = "unknown_identifier"
	AmbiguousIdentifier = "ambiguous_identifier"
	TypeMismatch       = "type_mismatch"
	AggregateMisuse    = "aggregate_misuse"
	RenamingArity      = "renaming_arity"

	// Optimizer invariant violations
	OptimizerInvariant = "optimizer_invariant"

	// Operator runtime
	RuntimeTypeMismatch = "runtime_type_mismatch"
	ColumnNotFound      = "column_not_found"
	Overflow            = "overflow"

	// Concurrency control
	TransactionAborted  = "transaction_aborted"
	TransactionConflict = "transaction_conflict"
	SchedulerShutdown   = "scheduler_shutdown"

	// Catch-all
	InternalError = "internal_error"
)
