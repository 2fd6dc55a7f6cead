// Package chain defines the committed-block types shared by the
// replication/consensus service and the persistence layer: the full Block
// record and its BlockMeta summary.
package chain

import (
	"github.com/mosaicnetworks/auditchain/audit"
	"github.com/mosaicnetworks/auditchain/merkle"
)

// Block is an ordered batch of audits committed atomically and linked to
// its predecessor by hash. Id 0 is genesis.
type Block struct {
	ID           int64        `json:"id"`
	PreviousHash string       `json:"previous_hash"`
	MerkleRoot   string       `json:"merkle_root"`
	Hash         string       `json:"hash"`
	Audits       []audit.Audit `json:"audits"`
}

// BlockMeta is the persisted per-block record kept in the chain metadata
// store's append-only log. It omits the audit bodies, which live in the
// block body store instead.
type BlockMeta struct {
	ID           int64  `json:"id"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
	MerkleRoot   string `json:"merkle_root"`
}

// Meta extracts the BlockMeta summary of a block.
func (b *Block) Meta() BlockMeta {
	return BlockMeta{
		ID:           b.ID,
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
		MerkleRoot:   b.MerkleRoot,
	}
}

// Leafs returns the ordered Merkle leaf hashes of a block's audits.
func Leafs(audits []audit.Audit) []string {
	leafs := make([]string, len(audits))
	for i := range audits {
		leafs[i] = audit.LeafHash(&audits[i])
	}
	return leafs
}

// ComputeMerkleRoot recomputes the Merkle root a block's audits should
// have, independent of whatever MerkleRoot field the block carries. Used
// by ProposeBlock validation to detect tampering.
func ComputeMerkleRoot(audits []audit.Audit) string {
	return merkle.Root(Leafs(audits))
}

// ReqIDs returns the ordered list of request ids carried by a block, used
// to prune the mempool after a commit.
func ReqIDs(audits []audit.Audit) []string {
	ids := make([]string, len(audits))
	for i, a := range audits {
		ids[i] = a.ReqID
	}
	return ids
}
