// Package replicator implements the audit ingress and replication/
// consensus services: accepting signed audits from clients, gossiping
// them to peers, and running the proposal/commit/heartbeat/election RPCs
// that keep a peer's chain and mempool in sync with the cluster.
package replicator

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/auditchain/audit"
	"github.com/mosaicnetworks/auditchain/chain"
	"github.com/mosaicnetworks/auditchain/chainstore"
	"github.com/mosaicnetworks/auditchain/cluster"
	"github.com/mosaicnetworks/auditchain/rpcnet"
)

// GossipDeadline bounds every per-peer WhisperAuditRequest fan-out call.
const GossipDeadline = 200 * time.Millisecond

// MempoolStore is the subset of mempool.Pool (and mempool.PersistentPool,
// which embeds it) that the replication service depends on.
type MempoolStore interface {
	Append(audit.Audit)
	LoadAll() []audit.Audit
	RemoveBatch(reqIDs []string)
	Size() int
}

// Service implements rpcnet.Handler: it is the audit ingress service
// (SubmitAudit) and the replication/consensus service (everything else)
// in one type, since both share the same mempool, chain stores, and peer
// pool.
type Service struct {
	selfAddress  string
	peers        []string
	strictVerify bool

	mempool    MempoolStore
	meta       *chainstore.MetaStore
	body       *chainstore.BodyStore
	heartbeats *cluster.HeartbeatTable
	election   *cluster.ElectionState
	pool       *rpcnet.Pool

	logger *logrus.Entry
}

// New builds a Service. peers is the list of other peer addresses to
// gossip and broadcast to; it must not include selfAddress.
func New(
	selfAddress string,
	peers []string,
	strictVerify bool,
	mempool MempoolStore,
	meta *chainstore.MetaStore,
	body *chainstore.BodyStore,
	heartbeats *cluster.HeartbeatTable,
	election *cluster.ElectionState,
	pool *rpcnet.Pool,
	logger *logrus.Entry,
) *Service {
	return &Service{
		selfAddress:  selfAddress,
		peers:        peers,
		strictVerify: strictVerify,
		mempool:      mempool,
		meta:         meta,
		body:         body,
		heartbeats:   heartbeats,
		election:     election,
		pool:         pool,
		logger:       logger,
	}
}

// SubmitAudit implements 4.H: verify, append locally, fan out to every
// peer with a bounded deadline, then reply success. Peer failures never
// fail the client's call.
func (s *Service) SubmitAudit(req rpcnet.SubmitAuditRequest, resp *rpcnet.SubmitAuditResponse) error {
	resp.ReqID = req.Audit.ReqID

	if !req.Audit.Verify() {
		resp.Status = rpcnet.StatusFailure
		return invalidArgument("invalid client signature")
	}

	s.mempool.Append(req.Audit)

	s.gossip(req.Audit)

	resp.Status = rpcnet.StatusSuccess
	return nil
}

// gossip fans a out to every configured peer concurrently, each call
// bounded by GossipDeadline. A peer with no pooled connection is dialed
// first, under the pool's own dial timeout, and GossipDeadline only starts
// once that dial has succeeded. Failures (including deadline exceeded) are
// logged and otherwise ignored.
func (s *Service) gossip(a audit.Audit) {
	var wg sync.WaitGroup
	for _, peer := range s.peers {
		peer := peer
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.pool.WhisperAudit(peer, rpcnet.WhisperAuditRequest{Audit: a}, GossipDeadline)
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"peer":   peer,
					"req_id": a.ReqID,
					"error":  err,
				}).Debug("whisper audit to peer failed")
			}
		}()
	}
	wg.Wait()
}

// WhisperAuditRequest implements the peer-to-peer counterpart of
// SubmitAudit's verification step: same check, idempotent append.
func (s *Service) WhisperAuditRequest(req rpcnet.WhisperAuditRequest, resp *rpcnet.WhisperAuditResponse) error {
	if !req.Audit.Verify() {
		resp.Status = rpcnet.StatusFailure
		return invalidArgument("invalid audit signature")
	}

	s.mempool.Append(req.Audit)
	resp.Status = rpcnet.StatusSuccess
	return nil
}

// ProposeBlock implements 4.I's ProposeBlock: it always returns an RPC
// status of OK; the vote itself is carried in the response payload.
func (s *Service) ProposeBlock(req rpcnet.ProposeBlockRequest, resp *rpcnet.ProposeBlockResponse) error {
	block := req.Block

	wantRoot := chain.ComputeMerkleRoot(block.Audits)
	if wantRoot != block.MerkleRoot {
		resp.Vote = false
		resp.Status = rpcnet.StatusSuccess
		resp.ErrorMessage = "bad merkle_root"
		return nil
	}

	if block.PreviousHash != s.meta.LastHash() {
		resp.Vote = false
		resp.Status = rpcnet.StatusSuccess
		resp.ErrorMessage = "bad previous_hash"
		return nil
	}

	if s.strictVerify {
		for i := range block.Audits {
			if !block.Audits[i].Verify() {
				resp.Vote = false
				resp.Status = rpcnet.StatusSuccess
				resp.ErrorMessage = "bad audit signature"
				return nil
			}
		}
	}

	resp.Vote = true
	resp.Status = rpcnet.StatusSuccess
	return nil
}

// CommitBlock implements 4.I's CommitBlock, including its idempotency on
// id: a repeat commit of the same block succeeds without re-writing, a
// commit under the same id with a different hash is rejected as a fork.
// Only the current chain head is compared; a block whose id is not the
// head's id or the one right after it is rejected before anything is
// written.
func (s *Service) CommitBlock(req rpcnet.CommitBlockRequest, resp *rpcnet.CommitBlockResponse) error {
	block := req.Block

	if existing, ok := s.meta.GetMeta(); ok && existing.ID == block.ID {
		if existing.Hash == block.Hash {
			resp.Status = rpcnet.StatusSuccess
			return nil
		}
		resp.Status = rpcnet.StatusFailure
		resp.ErrorMessage = "fork at id"
		return nil
	}

	if block.ID != s.meta.LastID()+1 {
		resp.Status = rpcnet.StatusFailure
		resp.ErrorMessage = "block id out of sequence"
		return nil
	}

	if err := s.body.Put(&block); err != nil {
		s.logger.WithError(err).WithField("block_id", block.ID).Error("write block body")
		resp.Status = rpcnet.StatusFailure
		resp.ErrorMessage = "failed to write block body"
		return nil
	}

	if err := s.meta.Append(block.Meta()); err != nil {
		s.logger.WithError(err).WithField("block_id", block.ID).Error("append block meta")
		resp.Status = rpcnet.StatusFailure
		resp.ErrorMessage = "failed to append block metadata"
		return nil
	}

	s.mempool.RemoveBatch(chain.ReqIDs(block.Audits))

	resp.Status = rpcnet.StatusSuccess
	return nil
}

// GetBlock implements 4.I's GetBlock.
func (s *Service) GetBlock(req rpcnet.GetBlockRequest, resp *rpcnet.GetBlockResponse) error {
	if req.ID > s.meta.LastID() {
		resp.Status = rpcnet.StatusFailure
		resp.ErrorMessage = "block id out of range"
		return nil
	}

	block, err := s.body.Get(req.ID)
	if err != nil {
		resp.Status = rpcnet.StatusFailure
		resp.ErrorMessage = "block id out of range"
		return nil
	}

	resp.Block = *block
	resp.Status = rpcnet.StatusSuccess
	return nil
}

// SendHeartbeat implements 4.I's SendHeartbeat, including the
// learn-by-observation leader bootstrap.
func (s *Service) SendHeartbeat(req rpcnet.SendHeartbeatRequest, resp *rpcnet.SendHeartbeatResponse) error {
	s.heartbeats.Update(cluster.Heartbeat{
		Address:              req.FromAddress,
		CurrentLeaderAddress: req.CurrentLeaderAddress,
		BlockID:              req.LatestBlockID,
		PoolSize:             req.MemPoolSize,
		Timestamp:            time.Now().Unix(),
	})

	if s.election.GetLeader() == "" && req.CurrentLeaderAddress != "" {
		s.election.SetLeader(req.CurrentLeaderAddress)
	}

	resp.Status = rpcnet.StatusSuccess
	return nil
}

// TriggerElection implements 4.I's deterministic vote rule: vote YES iff,
// in lexicographic order, the candidate has more blocks, or equal blocks
// and a larger pool, or all equal and a lexicographically greater
// address.
func (s *Service) TriggerElection(req rpcnet.TriggerElectionRequest, resp *rpcnet.TriggerElectionResponse) error {
	candBlocks, candPool := int64(0), 0
	if hb, ok := s.heartbeats.Lookup(req.CandidateAddress); ok {
		candBlocks, candPool = hb.BlockID, hb.PoolSize
	}

	myBlocks := s.meta.LastID()
	if myBlocks < 0 {
		myBlocks = 0
	}
	myPool := s.mempool.Size()

	vote := candBlocks > myBlocks ||
		(candBlocks == myBlocks && candPool > myPool) ||
		(candBlocks == myBlocks && candPool == myPool && req.CandidateAddress > s.selfAddress)

	if vote {
		s.election.SetVotedFor(req.CandidateAddress)
	}

	resp.Vote = vote
	resp.Term = 0
	resp.Status = rpcnet.StatusSuccess
	return nil
}

// NotifyLeadership implements 4.I's NotifyLeadership. It performs no
// authentication of the notifier (tracked as an open question).
func (s *Service) NotifyLeadership(req rpcnet.NotifyLeadershipRequest, resp *rpcnet.NotifyLeadershipResponse) error {
	s.election.SetLeader(req.LeaderAddress)
	resp.Status = rpcnet.StatusSuccess
	return nil
}

func invalidArgument(message string) error {
	return &rpcError{message: message}
}

// rpcError reports a client-caused failure distinctly from a transport
// failure, while still satisfying the plain error interface net/rpc
// requires.
type rpcError struct {
	message string
}

func (e *rpcError) Error() string {
	return "INVALID_ARGUMENT: " + e.message
}
