// Package pop implements the Proof of Play transaction handler.
//
// A participant submits a play session measured by a reaction-time
// "entropy" value. The handler validates it against a minimum threshold
// and, when valid, mints a fixed amount of time-token (TT) to the caller.
//
// # Core Components
//
// Handler: Validates sessions and applies the mint through a Ledger.
//
// Ledger: Capability interface over the host's account balances.
//
// EventSink: Append-only destination for outcome records.
//
// # Check Order
//
// Checks run in a fixed order so that the first failing rule decides the
// error:
//  1. entropy below the minimum yields ErrLowEntropy
//  2. an empty player identifier yields ErrInvalidPlayer
//  3. a credit that would overflow the balance yields ErrOverflow
//
// No check mutates state. Repeated valid submissions each mint again:
// there is no replay guard at this layer.
package pop
