package mempool

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	return logrus.NewEntry(logrus.New())
}

func TestPersistentPoolSurvivesReload(t *testing.T) {
	dir, err := ioutil.TempDir("", "mempool-badger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	pp, err := NewPersistent(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	pp.Append(mkAudit("r1"))
	pp.Append(mkAudit("r2"))

	if err := pp.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewPersistent(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if reopened.Size() != 2 {
		t.Fatalf("Size() after reload = %d, want 2", reopened.Size())
	}
	if !reopened.Contains("r1") || !reopened.Contains("r2") {
		t.Fatal("expected both audits to survive reload")
	}
}

func TestPersistentPoolRemoveBatch(t *testing.T) {
	dir, err := ioutil.TempDir("", "mempool-badger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	pp, err := NewPersistent(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer pp.Close()

	pp.Append(mkAudit("r1"))
	pp.Append(mkAudit("r2"))
	pp.RemoveBatch([]string{"r1"})

	if pp.Contains("r1") {
		t.Fatal("expected r1 to be removed")
	}
	if !pp.Contains("r2") {
		t.Fatal("expected r2 to remain")
	}
}
