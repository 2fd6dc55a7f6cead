package rpcnet

import "time"

// WhisperAudit gossips req to target, the peer-to-peer counterpart of the
// client-facing SubmitAudit.
func (p *Pool) WhisperAudit(target string, req WhisperAuditRequest, deadline time.Duration) (WhisperAuditResponse, error) {
	var resp WhisperAuditResponse
	err := p.CallWithDeadline(target, "WhisperAuditRequest", deadline, req, &resp)
	return resp, err
}

// ProposeBlock asks target to vote on req.Block.
func (p *Pool) ProposeBlock(target string, req ProposeBlockRequest, deadline time.Duration) (ProposeBlockResponse, error) {
	var resp ProposeBlockResponse
	err := p.CallWithDeadline(target, "ProposeBlock", deadline, req, &resp)
	return resp, err
}

// CommitBlock asks target to durably commit req.Block.
func (p *Pool) CommitBlock(target string, req CommitBlockRequest, deadline time.Duration) (CommitBlockResponse, error) {
	var resp CommitBlockResponse
	err := p.CallWithDeadline(target, "CommitBlock", deadline, req, &resp)
	return resp, err
}

// GetBlock asks target for the block at req.ID.
func (p *Pool) GetBlock(target string, req GetBlockRequest, deadline time.Duration) (GetBlockResponse, error) {
	var resp GetBlockResponse
	err := p.CallWithDeadline(target, "GetBlock", deadline, req, &resp)
	return resp, err
}

// SendHeartbeat reports this node's view of the cluster to target.
func (p *Pool) SendHeartbeat(target string, req SendHeartbeatRequest, deadline time.Duration) (SendHeartbeatResponse, error) {
	var resp SendHeartbeatResponse
	err := p.CallWithDeadline(target, "SendHeartbeat", deadline, req, &resp)
	return resp, err
}

// TriggerElection asks target to vote on this node's candidacy.
func (p *Pool) TriggerElection(target string, req TriggerElectionRequest, deadline time.Duration) (TriggerElectionResponse, error) {
	var resp TriggerElectionResponse
	err := p.CallWithDeadline(target, "TriggerElection", deadline, req, &resp)
	return resp, err
}

// NotifyLeadership announces req.LeaderAddress to target.
func (p *Pool) NotifyLeadership(target string, req NotifyLeadershipRequest, deadline time.Duration) (NotifyLeadershipResponse, error) {
	var resp NotifyLeadershipResponse
	err := p.CallWithDeadline(target, "NotifyLeadership", deadline, req, &resp)
	return resp, err
}
