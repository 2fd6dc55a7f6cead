// Package mempool holds the set of audits known locally but not yet
// committed in a block.
package mempool

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/auditchain/audit"
)

// Pool is an in-memory set of pending audits keyed by request id. All
// operations are atomic with respect to each other; Append never fails.
type Pool struct {
	l        sync.Mutex
	byReqID  map[string]audit.Audit
	order    map[string]int
	sequence int
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{
		byReqID: make(map[string]audit.Audit),
		order:   make(map[string]int),
	}
}

// Append inserts a into the pool, or overwrites the entry already present
// under the same ReqID. Duplicate delivery is therefore idempotent.
func (p *Pool) Append(a audit.Audit) {
	p.l.Lock()
	defer p.l.Unlock()

	if _, exists := p.order[a.ReqID]; !exists {
		p.order[a.ReqID] = p.sequence
		p.sequence++
	}
	p.byReqID[a.ReqID] = a
}

// LoadAll returns every pending audit, in insertion order with ties
// (there are none, since ReqID is the insertion key) broken by ReqID, so
// that two peers holding the same audit set build byte-identical blocks.
func (p *Pool) LoadAll() []audit.Audit {
	p.l.Lock()
	defer p.l.Unlock()

	reqIDs := make([]string, 0, len(p.byReqID))
	for id := range p.byReqID {
		reqIDs = append(reqIDs, id)
	}
	sort.Slice(reqIDs, func(i, j int) bool {
		oi, oj := p.order[reqIDs[i]], p.order[reqIDs[j]]
		if oi != oj {
			return oi < oj
		}
		return reqIDs[i] < reqIDs[j]
	})

	out := make([]audit.Audit, len(reqIDs))
	for i, id := range reqIDs {
		out[i] = p.byReqID[id]
	}
	return out
}

// RemoveBatch removes each listed req id if present; ids not found are
// ignored.
func (p *Pool) RemoveBatch(reqIDs []string) {
	p.l.Lock()
	defer p.l.Unlock()

	for _, id := range reqIDs {
		delete(p.byReqID, id)
		delete(p.order, id)
	}
}

// Size returns the number of pending audits.
func (p *Pool) Size() int {
	p.l.Lock()
	defer p.l.Unlock()
	return len(p.byReqID)
}

// Contains reports whether reqID is currently pending.
func (p *Pool) Contains(reqID string) bool {
	p.l.Lock()
	defer p.l.Unlock()
	_, ok := p.byReqID[reqID]
	return ok
}
