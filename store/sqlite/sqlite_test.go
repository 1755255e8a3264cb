package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

const alice pop.AccountID = "alice"

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "pop.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s, path
}

func submit(h *pop.Handler, player string, entropy uint32) func(pop.Ledger, pop.EventSink) error {
	return func(l pop.Ledger, sink pop.EventSink) error {
		return h.SubmitPoP(l, sink, alice, []byte(player), entropy)
	}
}

func TestOpenCreatesGenesis(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	blocks, err := s.Events(ctx, 0, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Index != 0 || blocks[0].Event.Kind != "genesis" {
		t.Fatalf("expected genesis only, got %+v", blocks)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestTransitionPersistsCreditAndRecord(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	h := pop.NewHandler()

	blocks, err := s.Transition(ctx, "tx1", submit(h, "ugid123", 25))
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Event != pop.PlayVerified(alice, 25, 1) {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
	if b, _ := s.BalanceOf(ctx, alice); b != 1 {
		t.Fatalf("expected balance 1, got %d", b)
	}

	// Reopen and check the state survived.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if b, _ := reopened.BalanceOf(ctx, alice); b != 1 {
		t.Fatalf("expected persisted balance 1, got %d", b)
	}
	stored, err := reopened.Events(ctx, 1, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(stored) != 1 || stored[0].Hash != blocks[0].Hash || stored[0].TxHash != "tx1" {
		t.Fatalf("stored record differs: %+v", stored)
	}
}

func TestRejectedTransitionWritesNothing(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	h := pop.NewHandler()

	for _, tc := range []struct {
		player  string
		entropy uint32
		want    error
	}{
		{"ugid", 10, pop.ErrLowEntropy},
		{"", 25, pop.ErrInvalidPlayer},
	} {
		if _, err := s.Transition(ctx, "tx", submit(h, tc.player, tc.entropy)); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
	}
	if b, _ := s.BalanceOf(ctx, alice); b != 0 {
		t.Fatalf("balance changed: %d", b)
	}
	if blocks, _ := s.Events(ctx, 1, 0); len(blocks) != 0 {
		t.Fatalf("rejected transition left records: %+v", blocks)
	}
}

func TestFailureAfterCreditRollsBack(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.Transition(ctx, "tx", func(l pop.Ledger, sink pop.EventSink) error {
		if err := l.Credit(alice, 3); err != nil {
			return err
		}
		_ = sink.Deposit(pop.PlayVerified(alice, 30, 3))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if b, _ := s.BalanceOf(ctx, alice); b != 0 {
		t.Fatalf("balance leaked: %d", b)
	}
}

func TestOverflowAtMaxBalance(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	if err := s.Genesis(ctx, map[pop.AccountID]pop.Balance{alice: math.MaxUint64}); err != nil {
		t.Fatalf("genesis: %v", err)
	}

	_, err := s.Transition(ctx, "tx", submit(pop.NewHandler(), "ugid", 25))
	if !errors.Is(err, pop.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if b, _ := s.BalanceOf(ctx, alice); b != math.MaxUint64 {
		t.Fatalf("expected max balance kept, got %d", b)
	}
}

func TestRepeatedSubmissionsAndVerify(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	h := pop.NewHandler()

	for i := 0; i < 2; i++ {
		if _, err := s.Transition(ctx, "tx", submit(h, "ugid123", 25)); err != nil {
			t.Fatalf("transition %d: %v", i, err)
		}
	}
	if _, err := s.Record(ctx, "tx-bad", pop.InvalidPlay(pop.KindLowEntropy)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if b, _ := s.BalanceOf(ctx, alice); b != 2 {
		t.Fatalf("expected balance 2, got %d", b)
	}
	page, err := s.Events(ctx, 1, 2)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(page) != 2 || page[0].Index != 1 || page[1].Index != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	all, _ := s.Events(ctx, 0, 0)
	if all[3].Event.Reason != pop.KindLowEntropy {
		t.Fatalf("reason not persisted: %+v", all[3].Event)
	}
	if err := s.Verify(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := s.Genesis(ctx, map[pop.AccountID]pop.Balance{alice: 9}); err == nil {
		t.Fatal("expected genesis after transitions to fail")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	if _, err := s.Transition(ctx, "tx", submit(pop.NewHandler(), "ugid", 25)); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE events SET minted = '500' WHERE seq = 1`); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := s.Verify(ctx); err == nil {
		t.Fatal("expected tampered record to fail verification")
	}
}
