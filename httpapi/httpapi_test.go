package httpapi

import (
	"encoding/json"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/auditchain/audit"
	"github.com/mosaicnetworks/auditchain/chain"
	"github.com/mosaicnetworks/auditchain/chainstore"
	"github.com/mosaicnetworks/auditchain/cluster"
	"github.com/mosaicnetworks/auditchain/mempool"
)

// TestServiceHandlers exercises GetStats/GetBlock/GetPeers against a single
// Service, since NewService registers onto the process-wide
// DefaultServeMux and a second registration would panic.
func TestServiceHandlers(t *testing.T) {
	dir, err := ioutil.TempDir("", "httpapi")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	meta, err := chainstore.NewMetaStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	body, err := chainstore.NewBodyStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	block := &chain.Block{ID: 0, Hash: "h0", Audits: []audit.Audit{{ReqID: "r1"}}}
	if err := body.Put(block); err != nil {
		t.Fatal(err)
	}
	if err := meta.Append(block.Meta()); err != nil {
		t.Fatal(err)
	}

	pool := mempool.New()
	pool.Append(audit.Audit{ReqID: "r2"})

	heartbeats := cluster.NewHeartbeatTable()
	heartbeats.Update(cluster.Heartbeat{Address: "peer2", BlockID: 0})

	logger := logrus.NewEntry(logrus.New())
	svc := NewService("127.0.0.1:0", []string{"peer2", "peer3"}, pool, meta, body, heartbeats, logger)

	statsReq := httptest.NewRequest("GET", "/stats", nil)
	statsRec := httptest.NewRecorder()
	svc.GetStats(statsRec, statsReq)

	var stats Stats
	if err := json.Unmarshal(statsRec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.LastBlockID != 0 || stats.LastHash != "h0" || stats.MempoolSize != 1 {
		t.Fatalf("GetStats() = %+v", stats)
	}
	if len(stats.Heartbeats) != 1 {
		t.Fatalf("expected 1 heartbeat, got %d", len(stats.Heartbeats))
	}

	blockReq := httptest.NewRequest("GET", "/block/0", nil)
	blockRec := httptest.NewRecorder()
	svc.GetBlock(blockRec, blockReq)

	var gotBlock chain.Block
	if err := json.Unmarshal(blockRec.Body.Bytes(), &gotBlock); err != nil {
		t.Fatal(err)
	}
	if gotBlock.Hash != "h0" {
		t.Fatalf("GetBlock() = %+v", gotBlock)
	}

	missingReq := httptest.NewRequest("GET", "/block/99", nil)
	missingRec := httptest.NewRecorder()
	svc.GetBlock(missingRec, missingReq)
	if missingRec.Code != 404 {
		t.Fatalf("GetBlock(99) status = %d, want 404", missingRec.Code)
	}

	peersReq := httptest.NewRequest("GET", "/peers", nil)
	peersRec := httptest.NewRecorder()
	svc.GetPeers(peersRec, peersReq)

	var peers []string
	if err := json.Unmarshal(peersRec.Body.Bytes(), &peers); err != nil {
		t.Fatal(err)
	}
	if len(peers) != 2 {
		t.Fatalf("GetPeers() = %v", peers)
	}
}
