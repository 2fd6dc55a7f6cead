// Package rpcnet implements the peer-to-peer and client-facing RPC wire
// layer: the request/response types for every operation in the
// replication/consensus plane, the server that dispatches them, and the
// client pool used to call them on remote peers.
package rpcnet

import (
	"github.com/mosaicnetworks/auditchain/audit"
	"github.com/mosaicnetworks/auditchain/chain"
)

// Status strings carried in every RPC reply payload. The RPC transport
// error (the net/rpc error return) carries transport failures and the
// INVALID_ARGUMENT rejection of an audit whose signature does not verify;
// these values describe the outcome of a call that reached the handler.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// SubmitAuditRequest is the client-facing request to submit a new signed
// audit.
type SubmitAuditRequest struct {
	Audit audit.Audit
}

// SubmitAuditResponse echoes the audit's request id and reports whether
// it was accepted.
type SubmitAuditResponse struct {
	ReqID  string
	Status string
}

// WhisperAuditRequest is the peer-to-peer gossip of a single audit.
type WhisperAuditRequest struct {
	Audit audit.Audit
}

// WhisperAuditResponse reports whether the gossiped audit was accepted.
type WhisperAuditResponse struct {
	Status string
}

// ProposeBlockRequest asks a peer to vote on a candidate block.
type ProposeBlockRequest struct {
	Block chain.Block
}

// ProposeBlockResponse carries the peer's vote. The RPC transport itself
// always succeeds; a negative vote is not a transport error.
type ProposeBlockResponse struct {
	Vote         bool
	Status       string
	ErrorMessage string
}

// CommitBlockRequest asks a peer to durably commit a block it has already
// (or is now) seeing for the first time.
type CommitBlockRequest struct {
	Block chain.Block
}

// CommitBlockResponse reports whether the commit succeeded.
type CommitBlockResponse struct {
	Status       string
	ErrorMessage string
}

// GetBlockRequest asks a peer for the committed block at ID.
type GetBlockRequest struct {
	ID int64
}

// GetBlockResponse carries the requested block, if found.
type GetBlockResponse struct {
	Block        chain.Block
	Status       string
	ErrorMessage string
}

// SendHeartbeatRequest reports the sender's current view of the cluster.
type SendHeartbeatRequest struct {
	FromAddress         string
	CurrentLeaderAddress string
	LatestBlockID       int64
	MemPoolSize         int
}

// SendHeartbeatResponse acknowledges a heartbeat.
type SendHeartbeatResponse struct {
	Status string
}

// TriggerElectionRequest asks a peer to vote for candidate leadership.
type TriggerElectionRequest struct {
	CandidateAddress string
}

// TriggerElectionResponse carries the peer's vote. Term is reserved and
// always 0.
type TriggerElectionResponse struct {
	Vote   bool
	Term   int64
	Status string
}

// NotifyLeadershipRequest announces a new leader.
type NotifyLeadershipRequest struct {
	LeaderAddress string
}

// NotifyLeadershipResponse acknowledges a leadership notification.
type NotifyLeadershipResponse struct {
	Status string
}
