package txn

import (
	"sync"

	"github.com/emberdb/ember/internal/types"
)

// CommitContext is one pending commit in the global commit order. Commits
// receive their IDs in sequence; a commit becomes visible only after every
// earlier commit has.
type CommitContext struct {
	cid  types.CommitID
	next *CommitContext
	done bool
}

// Cid returns the commit ID this context was assigned.
func (cc *CommitContext) Cid() types.CommitID {
	return cc.cid
}

// Manager issues transaction IDs and snapshot commit IDs, tracks active
// contexts and orders commits.
type Manager struct {
	logger Logger

	mu      sync.Mutex
	nextTid types.TransactionID
	nextCid types.CommitID
	lastCid types.CommitID
	head    *CommitContext
	tail    *CommitContext
	active  map[types.TransactionID]*Context
}

// NewManager creates a transaction manager writing to the given logger.
// Commit ID 0 is reserved for preexisting data; the first commit gets 1.
func NewManager(logger Logger) *Manager {
	if logger == nil {
		logger = NewInitialLogger()
	}
	return &Manager{
		logger:  logger,
		nextTid: 1,
		nextCid: 1,
		active:  make(map[types.TransactionID]*Context),
	}
}

// NewContext starts a transaction reading at the last committed snapshot.
func (m *Manager) NewContext() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := &Context{
		manager:  m,
		tid:      m.nextTid,
		snapshot: m.lastCid,
	}
	m.nextTid++
	m.active[ctx.tid] = ctx
	return ctx
}

// LastCommitID returns the most recent globally visible commit ID.
func (m *Manager) LastCommitID() types.CommitID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCid
}

// ActiveCount returns the number of live contexts.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// prepareCommit assigns the next commit ID and links the context into the
// commit chain.
func (m *Manager) prepareCommit(*Context) *CommitContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	cc := &CommitContext{cid: m.nextCid}
	m.nextCid++
	if m.tail != nil {
		m.tail.next = cc
	} else {
		m.head = cc
	}
	m.tail = cc
	return cc
}

// commit publishes a pending commit: the publish callback runs with the
// assigned commit ID, then the chain advances lastCid over every finished
// prefix so snapshots only ever observe gap-free commit history.
func (m *Manager) commit(cc *CommitContext, publish func(types.CommitID)) {
	publish(cc.cid)
	m.logger.LogCommit(cc.cid)

	m.mu.Lock()
	defer m.mu.Unlock()

	cc.done = true
	for m.head != nil && m.head.done {
		m.lastCid = m.head.cid
		next := m.head.next
		if next == nil {
			m.tail = nil
		}
		m.head = next
	}
}

func (m *Manager) forget(ctx *Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, ctx.tid)
}
