package store

import (
	"math"
	"testing"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

func TestBalanceTextKeepsFullRange(t *testing.T) {
	for _, b := range []pop.Balance{0, 1, math.MaxInt64 + 1, math.MaxUint64} {
		got, err := ParseBalance(FormatBalance(b))
		if err != nil {
			t.Fatalf("parse %d: %v", b, err)
		}
		if got != b {
			t.Fatalf("expected %d, got %d", b, got)
		}
	}
	if _, err := ParseBalance("-1"); err == nil {
		t.Fatal("expected error for negative balance")
	}
}

func TestParseReason(t *testing.T) {
	k, err := ParseReason(pop.KindOverflow.String())
	if err != nil || k != pop.KindOverflow {
		t.Fatalf("expected overflow, got %s (%v)", k, err)
	}
	if _, err := ParseReason("nope"); err == nil {
		t.Fatal("expected error for unknown reason")
	}
}
