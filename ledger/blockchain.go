package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// Blockchain is an append-only log of outcome records.
type Blockchain struct {
	mu     sync.RWMutex
	blocks []Block
}

// NewBlockchain creates a new blockchain with an initialized genesis block.
func NewBlockchain() *Blockchain {
	return &Blockchain{
		blocks: []Block{Genesis(time.Now().Unix())},
	}
}

// Append adds a record to the chain and returns the new block.
func (bc *Blockchain) Append(txHash string, e pop.Event) (Block, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(bc.blocks) == 0 {
		return Block{}, fmt.Errorf("blockchain is empty")
	}
	latest := bc.blocks[len(bc.blocks)-1]
	newBlock := Next(latest, time.Now().Unix(), txHash, e)

	if err := ValidateLink(newBlock, latest); err != nil {
		return Block{}, fmt.Errorf("invalid block: %w", err)
	}
	bc.blocks = append(bc.blocks, newBlock)
	return newBlock, nil
}

// GetLatest returns the most recently added block in the blockchain.
// Returns an error if the blockchain is empty.
func (bc *Blockchain) GetLatest() (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return Block{}, fmt.Errorf("blockchain is empty")
	}
	return bc.blocks[len(bc.blocks)-1], nil
}

// GetByIndex retrieves a block by its index in the chain. Returns an error if the index
// is out of range.
func (bc *Blockchain) GetByIndex(index int) (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.blocks) {
		return Block{}, fmt.Errorf("index out of range")
	}
	return bc.blocks[index], nil
}

// Len returns the number of blocks, genesis included.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// Since returns up to limit blocks starting at index from. A non-positive
// limit returns every remaining block.
func (bc *Blockchain) Since(from, limit int) []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= len(bc.blocks) {
		return []Block{}
	}
	end := len(bc.blocks)
	if limit > 0 && from+limit < end {
		end = from + limit
	}
	out := make([]Block, end-from)
	copy(out, bc.blocks[from:end])
	return out
}

// Verify validates the integrity of the entire blockchain by checking the genesis block
// and verifying each subsequent block's hash, index continuity, and previous hash linkage.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return VerifyChain(bc.blocks)
}
