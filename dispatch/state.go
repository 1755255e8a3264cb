package dispatch

import (
	"context"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
)

// State is the host state the dispatcher mutates. It is satisfied by
// ledger.State and the persistent stores.
type State interface {
	// Transition runs fn against staged state and commits every credit and
	// record it produced, or none of them if fn fails.
	Transition(ctx context.Context, txHash string, fn ledger.TransitionFunc) ([]ledger.Block, error)

	// Record appends a single outcome record.
	Record(ctx context.Context, txHash string, e pop.Event) (ledger.Block, error)

	BalanceOf(ctx context.Context, account pop.AccountID) (pop.Balance, error)

	// Events returns up to limit blocks starting at index from.
	Events(ctx context.Context, from, limit int) ([]ledger.Block, error)
}
