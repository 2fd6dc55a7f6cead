package chainstore

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/auditchain/chain"
)

// BodyStore persists full block bodies (including their audits) as one
// file per block, under a blocks/ subdirectory of the data dir.
type BodyStore struct {
	dir string
}

// NewBodyStore opens (or creates) the block body directory under dir.
func NewBodyStore(dir string) (*BodyStore, error) {
	blocksDir := filepath.Join(dir, "blocks")
	if err := os.MkdirAll(blocksDir, 0755); err != nil {
		return nil, err
	}
	return &BodyStore{dir: blocksDir}, nil
}

func (bs *BodyStore) path(id int64) string {
	return filepath.Join(bs.dir, fmt.Sprintf("block_%d.json", id))
}

// Put writes block to disk, replacing any existing file for the same id.
// The write goes to a temp file in the same directory and is renamed into
// place, so a crash mid-write never leaves a truncated block file visible
// under its real name.
func (bs *BodyStore) Put(block *chain.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	final := bs.path(block.ID)
	tmp := final + ".tmp"

	if err := ioutil.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// Get loads the block stored under id.
func (bs *BodyStore) Get(id int64) (*chain.Block, error) {
	data, err := ioutil.ReadFile(bs.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStoreErr("block", NotFound, fmt.Sprintf("%d", id))
		}
		return nil, err
	}

	block := new(chain.Block)
	if err := json.Unmarshal(data, block); err != nil {
		return nil, NewStoreErr("block", Corrupt, fmt.Sprintf("%d", id))
	}
	return block, nil
}
