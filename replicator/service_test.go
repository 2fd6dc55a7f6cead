package replicator

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/auditchain/audit"
	"github.com/mosaicnetworks/auditchain/chain"
	"github.com/mosaicnetworks/auditchain/chainstore"
	"github.com/mosaicnetworks/auditchain/cluster"
	"github.com/mosaicnetworks/auditchain/mempool"
	"github.com/mosaicnetworks/auditchain/rpcnet"
)

func testLogger() *logrus.Entry {
	return logrus.NewEntry(logrus.New())
}

func signedAudit(t *testing.T, reqID string) audit.Audit {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	a := audit.Audit{
		ReqID:      reqID,
		Timestamp:  1700000000,
		AccessType: "READ",
		FileInfo:   audit.FileInfo{FileID: "f1", FileName: "x"},
		UserInfo:   audit.UserInfo{UserID: "u1", UserName: "alice"},
	}

	payload := audit.Canonicalize(&a)
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	a.Signature = base64.StdEncoding.EncodeToString(sig)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	a.PublicKey = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	return a
}

func newTestService(t *testing.T, selfAddr string, peers []string) *Service {
	dir, err := ioutil.TempDir("", "replicator")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	meta, err := chainstore.NewMetaStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	body, err := chainstore.NewBodyStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	return New(
		selfAddr,
		peers,
		false,
		mempool.New(),
		meta,
		body,
		cluster.NewHeartbeatTable(),
		cluster.NewElectionState(),
		rpcnet.NewPool(time.Second, testLogger()),
		testLogger(),
	)
}

func TestSubmitAuditAcceptsValidSignature(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	a := signedAudit(t, "r1")

	var resp rpcnet.SubmitAuditResponse
	if err := svc.SubmitAudit(rpcnet.SubmitAuditRequest{Audit: a}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != rpcnet.StatusSuccess || resp.ReqID != "r1" {
		t.Fatalf("SubmitAudit() resp = %+v", resp)
	}
	if svc.mempool.Size() != 1 {
		t.Fatalf("mempool size = %d, want 1", svc.mempool.Size())
	}
}

func TestSubmitAuditRejectsBadSignature(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	a := signedAudit(t, "r1")
	a.Signature = base64.StdEncoding.EncodeToString([]byte("garbage"))

	var resp rpcnet.SubmitAuditResponse
	err := svc.SubmitAudit(rpcnet.SubmitAuditRequest{Audit: a}, &resp)
	if err == nil {
		t.Fatal("expected error for invalid signature")
	}
	if svc.mempool.Size() != 0 {
		t.Fatal("expected mempool to remain empty after rejected audit")
	}
}

func TestWhisperAuditIdempotent(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	a := signedAudit(t, "r1")

	var resp rpcnet.WhisperAuditResponse
	if err := svc.WhisperAuditRequest(rpcnet.WhisperAuditRequest{Audit: a}, &resp); err != nil {
		t.Fatal(err)
	}
	if err := svc.WhisperAuditRequest(rpcnet.WhisperAuditRequest{Audit: a}, &resp); err != nil {
		t.Fatal(err)
	}
	if svc.mempool.Size() != 1 {
		t.Fatalf("mempool size = %d, want 1 after duplicate delivery", svc.mempool.Size())
	}
}

func TestProposeBlockValidatesMerkleRootAndPreviousHash(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	a := signedAudit(t, "r1")

	good := chain.Block{
		ID:           0,
		PreviousHash: "",
		MerkleRoot:   chain.ComputeMerkleRoot([]audit.Audit{a}),
		Hash:         "h0",
		Audits:       []audit.Audit{a},
	}

	var resp rpcnet.ProposeBlockResponse
	if err := svc.ProposeBlock(rpcnet.ProposeBlockRequest{Block: good}, &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Vote {
		t.Fatalf("expected vote=true for well-formed block, got %+v", resp)
	}

	badRoot := good
	badRoot.MerkleRoot = "deadbeef"
	resp = rpcnet.ProposeBlockResponse{}
	if err := svc.ProposeBlock(rpcnet.ProposeBlockRequest{Block: badRoot}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Vote || resp.ErrorMessage != "bad merkle_root" {
		t.Fatalf("expected bad merkle_root rejection, got %+v", resp)
	}

	badPrev := good
	badPrev.PreviousHash = "nonsense"
	resp = rpcnet.ProposeBlockResponse{}
	if err := svc.ProposeBlock(rpcnet.ProposeBlockRequest{Block: badPrev}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Vote || resp.ErrorMessage != "bad previous_hash" {
		t.Fatalf("expected bad previous_hash rejection, got %+v", resp)
	}
}

func TestCommitBlockIsIdempotentAndPrunesMempool(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	a := signedAudit(t, "r1")
	svc.mempool.Append(a)

	block := chain.Block{
		ID:           0,
		PreviousHash: "",
		MerkleRoot:   chain.ComputeMerkleRoot([]audit.Audit{a}),
		Hash:         "h0",
		Audits:       []audit.Audit{a},
	}

	var resp rpcnet.CommitBlockResponse
	if err := svc.CommitBlock(rpcnet.CommitBlockRequest{Block: block}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != rpcnet.StatusSuccess {
		t.Fatalf("first commit = %+v", resp)
	}
	if svc.mempool.Size() != 0 {
		t.Fatal("expected mempool pruned after commit")
	}
	if svc.meta.LastID() != 0 || svc.meta.LastHash() != "h0" {
		t.Fatalf("unexpected chain head after commit: id=%d hash=%s", svc.meta.LastID(), svc.meta.LastHash())
	}

	resp = rpcnet.CommitBlockResponse{}
	if err := svc.CommitBlock(rpcnet.CommitBlockRequest{Block: block}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != rpcnet.StatusSuccess {
		t.Fatalf("repeat commit should succeed idempotently, got %+v", resp)
	}

	var getResp rpcnet.GetBlockResponse
	if err := svc.GetBlock(rpcnet.GetBlockRequest{ID: 0}, &getResp); err != nil {
		t.Fatal(err)
	}
	if getResp.Status != rpcnet.StatusSuccess || getResp.Block.Hash != "h0" {
		t.Fatalf("GetBlock(0) = %+v", getResp)
	}
}

func TestCommitBlockRejectsForkAtID(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	block := chain.Block{ID: 0, PreviousHash: "", MerkleRoot: chain.ComputeMerkleRoot(nil), Hash: "h0"}

	var resp rpcnet.CommitBlockResponse
	if err := svc.CommitBlock(rpcnet.CommitBlockRequest{Block: block}, &resp); err != nil {
		t.Fatal(err)
	}

	fork := block
	fork.Hash = "h0-fork"
	resp = rpcnet.CommitBlockResponse{}
	if err := svc.CommitBlock(rpcnet.CommitBlockRequest{Block: fork}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != rpcnet.StatusFailure || resp.ErrorMessage != "fork at id" {
		t.Fatalf("expected fork rejection, got %+v", resp)
	}
}

func TestGetBlockOutOfRange(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	var resp rpcnet.GetBlockResponse
	if err := svc.GetBlock(rpcnet.GetBlockRequest{ID: 5}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != rpcnet.StatusFailure || resp.ErrorMessage != "block id out of range" {
		t.Fatalf("GetBlock() = %+v", resp)
	}
}

func TestSendHeartbeatBootstrapsLeader(t *testing.T) {
	svc := newTestService(t, "p1", nil)

	var resp rpcnet.SendHeartbeatResponse
	req := rpcnet.SendHeartbeatRequest{FromAddress: "p2", CurrentLeaderAddress: "p2", LatestBlockID: 3, MemPoolSize: 1}
	if err := svc.SendHeartbeat(req, &resp); err != nil {
		t.Fatal(err)
	}
	if svc.election.GetLeader() != "p2" {
		t.Fatalf("GetLeader() = %s, want p2", svc.election.GetLeader())
	}

	hb, ok := svc.heartbeats.Lookup("p2")
	if !ok || hb.BlockID != 3 || hb.CurrentLeaderAddress != "p2" {
		t.Fatalf("Lookup(p2) = %+v, %v", hb, ok)
	}
}

func TestTriggerElectionVoteRule(t *testing.T) {
	svc := newTestService(t, "10.0.0.1", nil)
	svc.heartbeats.Update(cluster.Heartbeat{Address: "10.0.0.2", BlockID: 0, PoolSize: 0})

	var resp rpcnet.TriggerElectionResponse
	if err := svc.TriggerElection(rpcnet.TriggerElectionRequest{CandidateAddress: "10.0.0.2"}, &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Vote {
		t.Fatal("expected YES vote on tie-break by greater address")
	}

	resp = rpcnet.TriggerElectionResponse{}
	if err := svc.TriggerElection(rpcnet.TriggerElectionRequest{CandidateAddress: "10.0.0.0"}, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Vote {
		t.Fatal("expected NO vote when candidate address sorts lower with equal stats")
	}
}

func TestNotifyLeadershipSetsLeader(t *testing.T) {
	svc := newTestService(t, "p1", nil)
	var resp rpcnet.NotifyLeadershipResponse
	if err := svc.NotifyLeadership(rpcnet.NotifyLeadershipRequest{LeaderAddress: "p3"}, &resp); err != nil {
		t.Fatal(err)
	}
	if svc.election.GetLeader() != "p3" {
		t.Fatalf("GetLeader() = %s, want p3", svc.election.GetLeader())
	}
}
