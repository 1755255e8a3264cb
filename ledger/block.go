package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/luca-patrignani/proof-of-play/codec"
	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// GenesisPrevHash is the PrevHash of the first block of every chain.
const GenesisPrevHash = "0"

// Block records one outcome in the chain.
type Block struct {
	Index     int       `json:"index"`
	Timestamp int64     `json:"timestamp"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Event     pop.Event `json:"event"`
}

// HashBlock computes the SHA256 hash of a block from its index, timestamp,
// previous hash, transaction hash and the canonical encoding of its event.
func HashBlock(b Block) string {
	data := fmt.Sprintf("%d%d%s%s%x",
		b.Index,
		b.Timestamp,
		b.PrevHash,
		b.TxHash,
		codec.EncodeEvent(b.Event),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ValidateLink verifies that current correctly follows previous: index
// continuity, previous hash linkage and current hash validity.
func ValidateLink(current, previous Block) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
	}
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PrevHash)
	}
	if expected := HashBlock(current); current.Hash != expected {
		return fmt.Errorf("invalid hash: expected %s, got %s", expected, current.Hash)
	}
	return nil
}

// VerifyChain validates a full sequence of blocks starting at genesis.
func VerifyChain(blocks []Block) error {
	if len(blocks) == 0 {
		return fmt.Errorf("empty blockchain")
	}
	if blocks[0].PrevHash != GenesisPrevHash || blocks[0].Index != 0 {
		return fmt.Errorf("invalid genesis block")
	}
	if blocks[0].Hash != HashBlock(blocks[0]) {
		return fmt.Errorf("invalid genesis hash")
	}
	for i := 1; i < len(blocks); i++ {
		if err := ValidateLink(blocks[i], blocks[i-1]); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

// Genesis returns the genesis block created at timestamp ts.
func Genesis(ts int64) Block {
	g := Block{
		Index:     0,
		Timestamp: ts,
		PrevHash:  GenesisPrevHash,
		Event:     pop.Event{Kind: "genesis"},
	}
	g.Hash = HashBlock(g)
	return g
}

// Next builds the block following prev for the given record.
func Next(prev Block, ts int64, txHash string, e pop.Event) Block {
	b := Block{
		Index:     prev.Index + 1,
		Timestamp: ts,
		PrevHash:  prev.Hash,
		TxHash:    txHash,
		Event:     e,
	}
	b.Hash = HashBlock(b)
	return b
}
