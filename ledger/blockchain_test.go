package ledger

import (
	"testing"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

func verified(entropy uint32) pop.Event {
	return pop.PlayVerified("alice", entropy, 1)
}

// TestNewBlockchainGenesis verifies that a new blockchain starts with a single genesis block.
func TestNewBlockchainGenesis(t *testing.T) {
	bc := NewBlockchain()
	if bc.Len() != 1 {
		t.Fatalf("expected 1 block (genesis), got %d", bc.Len())
	}
	genesis, err := bc.GetByIndex(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if genesis.Index != 0 {
		t.Fatalf("genesis index should be 0, got %d", genesis.Index)
	}
	if genesis.PrevHash != GenesisPrevHash {
		t.Fatalf("genesis PrevHash should be '0', got %s", genesis.PrevHash)
	}
	if genesis.Event.Kind != "genesis" {
		t.Fatalf("genesis event kind should be 'genesis', got %s", genesis.Event.Kind)
	}
	if genesis.Hash == "" {
		t.Fatal("genesis block should have a hash")
	}
}

// TestAppendValidBlock verifies that a record is appended and linked to its predecessor.
func TestAppendValidBlock(t *testing.T) {
	bc := NewBlockchain()
	b, err := bc.Append("tx1", verified(25))
	if err != nil {
		t.Fatalf("unexpected error appending valid block: %v", err)
	}
	if bc.Len() != 2 {
		t.Fatalf("expected 2 blocks after append, got %d", bc.Len())
	}
	genesis, _ := bc.GetByIndex(0)
	if b.Index != 1 {
		t.Fatalf("new block index should be 1, got %d", b.Index)
	}
	if b.PrevHash != genesis.Hash {
		t.Fatal("new block's PrevHash should match previous block's hash")
	}
	if b.TxHash != "tx1" || b.Event.Entropy != 25 {
		t.Fatalf("block content not preserved: %+v", b)
	}
}

func TestGetLatestBlock(t *testing.T) {
	bc := NewBlockchain()
	if _, err := bc.Append("tx1", verified(21)); err != nil {
		t.Fatalf("unexpected error appending block: %v", err)
	}
	if _, err := bc.Append("tx2", verified(22)); err != nil {
		t.Fatalf("unexpected error appending block: %v", err)
	}
	latest, err := bc.GetLatest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Index != 2 || latest.Event.Entropy != 22 {
		t.Fatalf("unexpected latest block: %+v", latest)
	}
}

func TestGetLatestEmptyBlockchain(t *testing.T) {
	bc := &Blockchain{blocks: []Block{}}
	if _, err := bc.GetLatest(); err == nil {
		t.Fatal("expected error for empty blockchain, got nil")
	}
	if _, err := bc.Append("tx", verified(20)); err == nil {
		t.Fatal("expected error appending to empty blockchain, got nil")
	}
}

func TestGetByIndexOutOfRange(t *testing.T) {
	bc := NewBlockchain()
	if _, err := bc.GetByIndex(10); err == nil {
		t.Fatal("expected error for out of range index, got nil")
	}
	if _, err := bc.GetByIndex(-1); err == nil {
		t.Fatal("expected error for negative index, got nil")
	}
}

func TestSince(t *testing.T) {
	bc := NewBlockchain()
	for i := 0; i < 5; i++ {
		if _, err := bc.Append("tx", verified(uint32(20+i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if got := bc.Since(0, 0); len(got) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(got))
	}
	got := bc.Since(2, 2)
	if len(got) != 2 || got[0].Index != 2 || got[1].Index != 3 {
		t.Fatalf("unexpected page: %+v", got)
	}
	if got := bc.Since(10, 5); len(got) != 0 {
		t.Fatalf("expected empty page, got %d", len(got))
	}
}

func TestVerifyValidChain(t *testing.T) {
	bc := NewBlockchain()
	for i := 0; i < 3; i++ {
		if _, err := bc.Append("tx", verified(uint32(30+i))); err != nil {
			t.Fatalf("unexpected error appending block: %v", err)
		}
	}
	if _, err := bc.Append("tx", pop.InvalidPlay(pop.KindLowEntropy)); err != nil {
		t.Fatalf("unexpected error appending block: %v", err)
	}
	if err := bc.Verify(); err != nil {
		t.Fatalf("valid blockchain verification failed: %v", err)
	}
}

func TestVerifyEmptyBlockchain(t *testing.T) {
	bc := &Blockchain{blocks: []Block{}}
	if err := bc.Verify(); err == nil {
		t.Fatal("expected error for empty blockchain verification, got nil")
	}
}

func TestVerifyInvalidGenesis(t *testing.T) {
	bc := NewBlockchain()
	bc.blocks[0].PrevHash = "invalid"
	if err := bc.Verify(); err == nil {
		t.Fatal("expected error for invalid genesis block, got nil")
	}
}

// TestVerifyTamperedRecord verifies that rewriting a recorded outcome is detected.
func TestVerifyTamperedRecord(t *testing.T) {
	bc := NewBlockchain()
	if _, err := bc.Append("tx1", verified(25)); err != nil {
		t.Fatalf("unexpected error appending block: %v", err)
	}
	bc.blocks[1].Event.Minted = 1000
	if err := bc.Verify(); err == nil {
		t.Fatal("expected error for tampered record, got nil")
	}
}

func TestVerifyTamperedBlockHash(t *testing.T) {
	bc := NewBlockchain()
	if _, err := bc.Append("tx1", verified(25)); err != nil {
		t.Fatalf("unexpected error appending block: %v", err)
	}
	bc.blocks[1].Hash = "tamperedhash"
	if err := bc.Verify(); err == nil {
		t.Fatal("expected error for tampered block hash, got nil")
	}
}

func TestVerifyBrokenChainLink(t *testing.T) {
	bc := NewBlockchain()
	for i := 0; i < 2; i++ {
		if _, err := bc.Append("tx", verified(25)); err != nil {
			t.Fatalf("unexpected error appending block: %v", err)
		}
	}
	bc.blocks[1].PrevHash = "wronghash"
	if err := bc.Verify(); err == nil {
		t.Fatal("expected error for broken chain link, got nil")
	}
}

func TestVerifyIndexDiscontinuity(t *testing.T) {
	bc := NewBlockchain()
	if _, err := bc.Append("tx", verified(25)); err != nil {
		t.Fatalf("unexpected error appending block: %v", err)
	}
	bc.blocks[1].Index = 5
	if err := bc.Verify(); err == nil {
		t.Fatal("expected error for index discontinuity, got nil")
	}
}
