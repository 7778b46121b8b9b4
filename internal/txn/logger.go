package txn

import (
	"github.com/emberdb/ember/internal/types"
)

// Logger is the sink for transactional change records. Durability is out
// of this engine's scope; the initial implementation discards everything,
// but write operators and the commit path already speak the protocol.
type Logger interface {
	// LogCommit records that a commit ID became durable.
	LogCommit(cid types.CommitID)
	// LogValue records an inserted row.
	LogValue(tid types.TransactionID, row types.RowID, values []types.Value)
	// LogInvalidate records a deleted row.
	LogInvalidate(tid types.TransactionID, row types.RowID)
}

// InitialLogger is the no-op logger.
type InitialLogger struct{}

// NewInitialLogger creates the no-op logger.
func NewInitialLogger() *InitialLogger {
	return &InitialLogger{}
}

// LogCommit discards the record.
func (*InitialLogger) LogCommit(types.CommitID) {}

// LogValue discards the record.
func (*InitialLogger) LogValue(types.TransactionID, types.RowID, []types.Value) {}

// LogInvalidate discards the record.
func (*InitialLogger) LogInvalidate(types.TransactionID, types.RowID) {}
