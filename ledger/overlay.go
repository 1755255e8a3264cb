package ledger

import (
	"fmt"
	"math"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// BalanceReader reads committed balances underneath an Overlay.
type BalanceReader func(account pop.AccountID) (pop.Balance, error)

// Overlay stages the credits and records of a single transition. It
// implements both pop.Ledger and pop.EventSink; nothing reaches the
// committed state until the owner applies Credits and Events.
type Overlay struct {
	base    BalanceReader
	credits map[pop.AccountID]pop.Balance
	order   []pop.AccountID
	events  []pop.Event
}

func NewOverlay(base BalanceReader) *Overlay {
	return &Overlay{base: base, credits: map[pop.AccountID]pop.Balance{}}
}

func (o *Overlay) BalanceOf(account pop.AccountID) (pop.Balance, error) {
	committed, err := o.base(account)
	if err != nil {
		return 0, err
	}
	return committed + o.credits[account], nil
}

func (o *Overlay) Credit(account pop.AccountID, amount pop.Balance) error {
	current, err := o.BalanceOf(account)
	if err != nil {
		return err
	}
	if current > math.MaxUint64-amount {
		return fmt.Errorf("credit %d to %s: %w", amount, account, pop.ErrOverflow)
	}
	if _, ok := o.credits[account]; !ok {
		o.order = append(o.order, account)
	}
	o.credits[account] += amount
	return nil
}

func (o *Overlay) Deposit(e pop.Event) error {
	o.events = append(o.events, e)
	return nil
}

// Credit is one staged balance increase.
type Credit struct {
	Account pop.AccountID
	Amount  pop.Balance
}

// Credits returns staged increases in the order accounts were first credited.
func (o *Overlay) Credits() []Credit {
	out := make([]Credit, 0, len(o.order))
	for _, a := range o.order {
		out = append(out, Credit{Account: a, Amount: o.credits[a]})
	}
	return out
}

// Events returns the staged records in deposit order.
func (o *Overlay) Events() []pop.Event {
	return append([]pop.Event{}, o.events...)
}
