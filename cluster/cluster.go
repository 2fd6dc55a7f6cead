// Package cluster tracks the lightweight membership-liveness and
// leader-election state that governs who may propose blocks: the
// heartbeat table and the election state.
package cluster

import "sync"

// Heartbeat is the last-seen liveness record for one peer.
type Heartbeat struct {
	Address              string `json:"address"`
	CurrentLeaderAddress string `json:"current_leader_address"`
	BlockID              int64  `json:"block_id"`
	PoolSize             int    `json:"pool_size"`
	Timestamp            int64  `json:"timestamp"`
}

// HeartbeatTable holds the most recent Heartbeat received from each peer.
// Updates overwrite the previous record for that peer; there is no decay
// or expiry logic, so a record from a peer that went silent is kept.
type HeartbeatTable struct {
	l     sync.Mutex
	table map[string]Heartbeat
}

// NewHeartbeatTable creates an empty table.
func NewHeartbeatTable() *HeartbeatTable {
	return &HeartbeatTable{table: make(map[string]Heartbeat)}
}

// Update records hb as the latest heartbeat from hb.Address.
func (t *HeartbeatTable) Update(hb Heartbeat) {
	t.l.Lock()
	defer t.l.Unlock()
	t.table[hb.Address] = hb
}

// Lookup returns the latest heartbeat from address, if any.
func (t *HeartbeatTable) Lookup(address string) (Heartbeat, bool) {
	t.l.Lock()
	defer t.l.Unlock()
	hb, ok := t.table[address]
	return hb, ok
}

// All returns a point-in-time snapshot of every peer's latest heartbeat.
func (t *HeartbeatTable) All() []Heartbeat {
	t.l.Lock()
	defer t.l.Unlock()

	out := make([]Heartbeat, 0, len(t.table))
	for _, hb := range t.table {
		out = append(out, hb)
	}
	return out
}

// ElectionState tracks the locally believed leader and, while an election
// is in flight, the candidate this node has voted for. It is not scoped to
// a term: a newer SetLeader/SetVotedFor call always wins, matching the
// single never-ending election round the replication service runs.
type ElectionState struct {
	l        sync.Mutex
	leader   string
	votedFor string
}

// NewElectionState creates an ElectionState with no known leader.
func NewElectionState() *ElectionState {
	return &ElectionState{}
}

// GetLeader returns the address this node currently believes leads, or ""
// if no leader has been established yet.
func (e *ElectionState) GetLeader() string {
	e.l.Lock()
	defer e.l.Unlock()
	return e.leader
}

// SetLeader records address as the believed leader.
func (e *ElectionState) SetLeader(address string) {
	e.l.Lock()
	defer e.l.Unlock()
	e.leader = address
}

// GetVotedFor returns the candidate this node has voted for in the current
// election, or "" if it has not voted.
func (e *ElectionState) GetVotedFor() string {
	e.l.Lock()
	defer e.l.Unlock()
	return e.votedFor
}

// SetVotedFor records address as the candidate this node has voted for.
func (e *ElectionState) SetVotedFor(address string) {
	e.l.Lock()
	defer e.l.Unlock()
	e.votedFor = address
}

// ClearVote resets the recorded vote, so GetVotedFor reports "" until the
// next SetVotedFor.
func (e *ElectionState) ClearVote() {
	e.l.Lock()
	defer e.l.Unlock()
	e.votedFor = ""
}
