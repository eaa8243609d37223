package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcp-conductor/mcp/protocol"
)

// pendingRequest tracks one in-flight outbound request awaiting a
// correlated response. startTime is read back by Session.Request to
// record the mcp.session.request.duration histogram once the request
// resolves.
type pendingRequest struct {
	method    string
	startTime time.Time
	done      chan *protocol.Response
	canceled  bool
}

// pendingTable is the id -> pendingRequest correlation map. All methods
// are safe for concurrent use; each holds the lock for O(1) work, except
// failAll, which swaps the map under the lock and then wakes every entry.
type pendingTable struct {
	mu     sync.Mutex
	byID   map[int64]*pendingRequest
	nextID atomic.Int64
}

func newPendingTable() *pendingTable {
	return &pendingTable{byID: make(map[int64]*pendingRequest)}
}

// register allocates the next request id and installs a waiter for it.
func (t *pendingTable) register(method string) (int64, *pendingRequest) {
	id := t.nextID.Add(1)
	p := &pendingRequest{method: method, startTime: time.Now(), done: make(chan *protocol.Response, 1)}
	t.mu.Lock()
	t.byID[id] = p
	t.mu.Unlock()
	return id, p
}

// complete resolves the pending entry for id with resp, if one exists.
// Returns false if there was no matching entry (stale or unknown response).
func (t *pendingTable) complete(id int64, resp *protocol.Response) bool {
	t.mu.Lock()
	p, ok := t.byID[id]
	if ok {
		delete(t.byID, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	p.done <- resp
	return true
}

// cancel removes the pending entry for id, if any, and reports whether
// one was found (i.e. whether a cancellation notification is warranted).
func (t *pendingTable) cancel(id int64) bool {
	t.mu.Lock()
	p, ok := t.byID[id]
	if ok {
		delete(t.byID, id)
		p.canceled = true
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	p.done <- nil
	return true
}

// failAll resolves every pending entry with a nil response, waking every
// waiter so it can observe the session's terminal error (session
// disconnect or close).
func (t *pendingTable) failAll() {
	t.mu.Lock()
	entries := t.byID
	t.byID = make(map[int64]*pendingRequest)
	t.mu.Unlock()
	for _, p := range entries {
		p.done <- nil
	}
}

// len reports the number of in-flight requests, used by tests asserting cleanup.
func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
