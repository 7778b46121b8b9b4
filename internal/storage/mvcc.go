package storage

import (
	"sync"
	"sync/atomic"

	"github.com/emberdb/ember/internal/types"
)

// MvccData holds the begin/end commit IDs and the tid slot of each row in a
// chunk. The slices are preallocated to the chunk capacity so concurrent
// readers never observe a reallocation.
type MvccData struct {
	mu     sync.Mutex
	size   int
	begins []atomic.Uint64
	ends   []atomic.Uint64
	tids   []atomic.Uint64
}

// NewMvccData creates MVCC columns for a chunk of the given capacity.
func NewMvccData(capacity int) *MvccData {
	return &MvccData{
		begins: make([]atomic.Uint64, capacity),
		ends:   make([]atomic.Uint64, capacity),
		tids:   make([]atomic.Uint64, capacity),
	}
}

// appendRow claims the next row slot for the inserting transaction. The row
// stays invisible (begin = MaxCommitID) until the transaction commits.
func (m *MvccData) appendRow(tid types.TransactionID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.size
	m.begins[row].Store(uint64(types.MaxCommitID))
	m.ends[row].Store(uint64(types.MaxCommitID))
	m.tids[row].Store(uint64(tid))
	m.size++
	return row
}

// Begin returns the begin commit ID of a row.
func (m *MvccData) Begin(offset types.ChunkOffset) types.CommitID {
	return types.CommitID(m.begins[offset].Load())
}

// End returns the end commit ID of a row.
func (m *MvccData) End(offset types.ChunkOffset) types.CommitID {
	return types.CommitID(m.ends[offset].Load())
}

// Tid returns the tid slot of a row.
func (m *MvccData) Tid(offset types.ChunkOffset) types.TransactionID {
	return types.TransactionID(m.tids[offset].Load())
}

// SetBegin publishes the begin commit ID of a row.
func (m *MvccData) SetBegin(offset types.ChunkOffset, cid types.CommitID) {
	m.begins[offset].Store(uint64(cid))
}

// SetEnd publishes the end commit ID of a row.
func (m *MvccData) SetEnd(offset types.ChunkOffset, cid types.CommitID) {
	m.ends[offset].Store(uint64(cid))
}

// SetTid overwrites the tid slot of a row.
func (m *MvccData) SetTid(offset types.ChunkOffset, tid types.TransactionID) {
	m.tids[offset].Store(uint64(tid))
}

// ClaimTid atomically claims the tid slot of a row for deletion or update.
// Fails when another transaction holds it.
func (m *MvccData) ClaimTid(offset types.ChunkOffset, tid types.TransactionID) bool {
	return m.tids[offset].CompareAndSwap(uint64(types.InvalidTransactionID), uint64(tid))
}

// Visible decides row visibility for a snapshot. A row is visible when it
// was committed at or before the snapshot and not yet deleted at the
// snapshot, or when the asking transaction wrote it itself.
func (m *MvccData) Visible(offset types.ChunkOffset, tid types.TransactionID, snapshot types.CommitID) bool {
	rowTid := m.Tid(offset)
	begin := m.Begin(offset)
	end := m.End(offset)

	if rowTid == tid && rowTid != types.InvalidTransactionID {
		// Own insert is visible, own delete is not.
		return begin == types.MaxCommitID && end == types.MaxCommitID
	}

	return begin <= snapshot && end > snapshot
}
