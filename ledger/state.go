package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// TransitionFunc runs handler logic against staged state.
type TransitionFunc func(l pop.Ledger, sink pop.EventSink) error

// State is the in-memory host state: balances and the outcome chain,
// mutated one transition at a time.
type State struct {
	mu       sync.Mutex
	accounts *Accounts
	chain    *Blockchain
}

func NewState() *State {
	return &State{
		accounts: NewAccounts(),
		chain:    NewBlockchain(),
	}
}

// Genesis sets initial balances. It must run before any transition.
func (s *State) Genesis(_ context.Context, balances map[pop.AccountID]pop.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain.Len() > 1 {
		return fmt.Errorf("genesis after first transition")
	}
	for a, b := range balances {
		s.accounts.set(a, b)
	}
	return nil
}

// Transition runs fn on an overlay and commits its credits and records only
// if fn succeeds. On error nothing is committed and no block is returned.
func (s *State) Transition(ctx context.Context, txHash string, fn TransitionFunc) ([]Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := NewOverlay(s.accounts.BalanceOf)
	if err := fn(o, o); err != nil {
		return nil, err
	}

	// Overlay already checked every credit against the committed balance,
	// and the lock is held, so applying cannot fail part way.
	for _, c := range o.Credits() {
		if err := s.accounts.Credit(c.Account, c.Amount); err != nil {
			return nil, fmt.Errorf("apply credit: %w", err)
		}
	}
	blocks := make([]Block, 0, len(o.Events()))
	for _, e := range o.Events() {
		b, err := s.chain.Append(txHash, e)
		if err != nil {
			return nil, fmt.Errorf("append record: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Record appends a single record outside any transition.
func (s *State) Record(ctx context.Context, txHash string, e pop.Event) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Block{}, err
	}
	return s.chain.Append(txHash, e)
}

func (s *State) BalanceOf(_ context.Context, account pop.AccountID) (pop.Balance, error) {
	return s.accounts.BalanceOf(account)
}

// Events returns up to limit blocks starting at index from.
func (s *State) Events(_ context.Context, from, limit int) ([]Block, error) {
	return s.chain.Since(from, limit), nil
}

// TotalIssuance returns the total TT minted.
func (s *State) TotalIssuance() pop.Balance {
	return s.accounts.TotalIssuance()
}

// Verify checks the integrity of the outcome chain.
func (s *State) Verify(_ context.Context) error {
	return s.chain.Verify()
}
