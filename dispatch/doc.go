// Package dispatch is the outer dispatch layer of the node. It authenticates
// signed transactions, routes them by call index to their handler, runs the
// handler inside an atomic state transition and surfaces the outcome.
//
// Transitions are applied one at a time. A rejected submission leaves no
// ledger mutation behind; the dispatcher then records an InvalidPlay outcome
// carrying the rejection kind so that observers see every decision.
package dispatch
