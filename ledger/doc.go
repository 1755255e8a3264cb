// Package ledger implements the in-memory host state for Proof of Play:
// account balances and an immutable, hash-chained log of outcome records.
//
// # Core Components
//
// Accounts: Balances keyed by account, credited only by minting.
//
// Blockchain: An append-only log of outcome records with hash chaining for
// tamper detection. Each block carries one record and the hash of the
// transaction that produced it.
//
// Overlay: Staged credits and records of one transition, applied to the
// underlying state only when the transition succeeds.
//
// State: Accounts and Blockchain updated together, one transition at a time.
//
// # Security Properties
//
// The blockchain provides:
//   - Immutability: Once recorded, blocks cannot be modified
//   - Verifiability: Anyone can verify the integrity of the entire chain
//   - Tamper detection: Any modification breaks the hash chain
package ledger
