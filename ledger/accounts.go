package ledger

import (
	"fmt"
	"math"
	"sync"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// Accounts holds account balances. It implements pop.Ledger.
type Accounts struct {
	mu       sync.RWMutex
	balances map[pop.AccountID]pop.Balance
	issued   pop.Balance
}

func NewAccounts() *Accounts {
	return &Accounts{balances: map[pop.AccountID]pop.Balance{}}
}

// Credit mints amount into account. It refuses to wrap around.
func (a *Accounts) Credit(account pop.AccountID, amount pop.Balance) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.balances[account]
	if current > math.MaxUint64-amount {
		return fmt.Errorf("credit %d to %s: %w", amount, account, pop.ErrOverflow)
	}
	a.balances[account] = current + amount
	a.issued += amount
	return nil
}

func (a *Accounts) BalanceOf(account pop.AccountID) (pop.Balance, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balances[account], nil
}

// TotalIssuance returns the amount minted through Credit.
func (a *Accounts) TotalIssuance() pop.Balance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.issued
}

// set overwrites a balance; used for genesis allocations only.
func (a *Accounts) set(account pop.AccountID, amount pop.Balance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[account] = amount
}
