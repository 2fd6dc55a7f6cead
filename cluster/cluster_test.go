package cluster

import "testing"

func TestHeartbeatTableUpdateAndLookup(t *testing.T) {
	ht := NewHeartbeatTable()

	if _, ok := ht.Lookup("peer1"); ok {
		t.Fatal("expected no heartbeat for unknown peer")
	}

	ht.Update(Heartbeat{Address: "peer1", CurrentLeaderAddress: "peer1", BlockID: 5, PoolSize: 2, Timestamp: 100})
	hb, ok := ht.Lookup("peer1")
	if !ok || hb.BlockID != 5 || hb.CurrentLeaderAddress != "peer1" {
		t.Fatalf("Lookup(peer1) = %+v, %v", hb, ok)
	}

	ht.Update(Heartbeat{Address: "peer1", CurrentLeaderAddress: "peer2", BlockID: 6, PoolSize: 0, Timestamp: 200})
	hb, ok = ht.Lookup("peer1")
	if !ok || hb.BlockID != 6 || hb.CurrentLeaderAddress != "peer2" {
		t.Fatalf("expected overwritten record with BlockID 6 and new leader, got %+v", hb)
	}
}

func TestHeartbeatTableAllIsSnapshot(t *testing.T) {
	ht := NewHeartbeatTable()
	ht.Update(Heartbeat{Address: "peer1"})
	ht.Update(Heartbeat{Address: "peer2"})

	all := ht.All()
	if len(all) != 2 {
		t.Fatalf("All() len = %d, want 2", len(all))
	}

	ht.Update(Heartbeat{Address: "peer3"})
	if len(all) != 2 {
		t.Fatal("expected previously taken snapshot to be unaffected by later updates")
	}
}

func TestElectionStateLeaderAndVote(t *testing.T) {
	es := NewElectionState()

	if got := es.GetLeader(); got != "" {
		t.Fatalf("GetLeader() on fresh state = %q, want empty", got)
	}

	es.SetLeader("peer1")
	if got := es.GetLeader(); got != "peer1" {
		t.Fatalf("GetLeader() = %q, want peer1", got)
	}

	es.SetVotedFor("peer2")
	if got := es.GetVotedFor(); got != "peer2" {
		t.Fatalf("GetVotedFor() = %q, want peer2", got)
	}

	es.ClearVote()
	if got := es.GetVotedFor(); got != "" {
		t.Fatalf("GetVotedFor() after clear = %q, want empty", got)
	}
}
