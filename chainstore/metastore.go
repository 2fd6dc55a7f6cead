// Package chainstore persists committed chain metadata and block bodies to
// disk: an append-only, crash-safe metadata log and a directory of
// individually addressable block body files.
package chainstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mosaicnetworks/auditchain/chain"
)

const metaFileName = "chain.json"

// MetaStore is an append-only log of BlockMeta records, one JSON object per
// line, fsync'd on every append. It is the source of truth for the chain's
// current head (last committed block's id/hash).
type MetaStore struct {
	l    sync.Mutex
	path string
	last *chain.BlockMeta
}

// NewMetaStore opens (or creates) the metadata log under dir, replaying
// whatever records are already present. A partial trailing line left by a
// crash mid-write is truncated from the file rather than treated as
// corruption.
func NewMetaStore(dir string) (*MetaStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, metaFileName)
	ms := &MetaStore{path: path}

	if err := ms.replay(); err != nil {
		return nil, err
	}

	return ms, nil
}

func (ms *MetaStore) replay() error {
	f, err := os.OpenFile(ms.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var last *chain.BlockMeta
	var good int64
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			good++
			continue
		}
		var meta chain.BlockMeta
		if err := json.Unmarshal(line, &meta); err != nil {
			// A partial trailing record from a crash mid-append: stop
			// replaying here rather than failing startup.
			break
		}
		good += int64(len(line)) + 1
		m := meta
		last = &m
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if good < info.Size() {
		if err := f.Truncate(good); err != nil {
			return err
		}
	}

	ms.last = last
	return nil
}

// Append records meta as the new chain head. meta.ID must be exactly one
// greater than the current head's id (genesis is id 0, appended first).
func (ms *MetaStore) Append(meta chain.BlockMeta) error {
	ms.l.Lock()
	defer ms.l.Unlock()

	wantID := int64(0)
	if ms.last != nil {
		wantID = ms.last.ID + 1
	}
	if meta.ID != wantID {
		return NewStoreErr("meta", OutOfOrder, fmt.Sprintf("%d", meta.ID))
	}

	line, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	f, err := os.OpenFile(ms.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}

	m := meta
	ms.last = &m
	return nil
}

// LastHash returns the hash of the current chain head, or "" if the chain
// is empty.
func (ms *MetaStore) LastHash() string {
	ms.l.Lock()
	defer ms.l.Unlock()
	if ms.last == nil {
		return ""
	}
	return ms.last.Hash
}

// LastID returns the id of the current chain head, or -1 if the chain is
// empty.
func (ms *MetaStore) LastID() int64 {
	ms.l.Lock()
	defer ms.l.Unlock()
	if ms.last == nil {
		return -1
	}
	return ms.last.ID
}

// GetMeta returns the chain head's metadata, or false if the chain is
// empty.
func (ms *MetaStore) GetMeta() (chain.BlockMeta, bool) {
	ms.l.Lock()
	defer ms.l.Unlock()
	if ms.last == nil {
		return chain.BlockMeta{}, false
	}
	return *ms.last, true
}
