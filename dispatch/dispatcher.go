package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
	"github.com/luca-patrignani/proof-of-play/transaction"
)

var ErrUnknownCall = errors.New("unknown call")

// CallInfo describes a dispatchable call.
type CallInfo struct {
	Index  transaction.Call `json:"index"`
	Name   string           `json:"name"`
	Weight uint64           `json:"weight"`
}

var calls = []CallInfo{
	{Index: transaction.CallSubmitPoP, Name: transaction.CallSubmitPoP.String(), Weight: 10_000},
}

// Calls lists the calls the dispatcher routes.
func Calls() []CallInfo {
	return append([]CallInfo{}, calls...)
}

// Receipt is the outcome of one dispatched transaction.
type Receipt struct {
	TxHash string         `json:"tx_hash"`
	Call   string         `json:"call"`
	Caller pop.AccountID  `json:"caller,omitempty"`
	Blocks []ledger.Block `json:"blocks"`
	Reason pop.ErrorKind  `json:"reason,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Dispatcher applies transactions to a State.
type Dispatcher struct {
	mu      sync.Mutex
	state   State
	handler *pop.Handler
	feed    *Feed
	logger  *slog.Logger
}

type option func(Dispatcher) Dispatcher

// New returns a dispatcher routing submit_pop to handler.
func New(state State, handler *pop.Handler, opts ...option) *Dispatcher {
	d := Dispatcher{
		state:   state,
		handler: handler,
		feed:    NewFeed(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		d = opt(d)
	}
	return &d
}

func WithLogger(logger *slog.Logger) option {
	return func(d Dispatcher) Dispatcher {
		d.logger = logger
		return d
	}
}

func WithFeed(feed *Feed) option {
	return func(d Dispatcher) Dispatcher {
		d.feed = feed
		return d
	}
}

// Feed returns the feed committed blocks are published to.
func (d *Dispatcher) Feed() *Feed { return d.feed }

// State returns the state the dispatcher mutates.
func (d *Dispatcher) State() State { return d.state }

// Handler returns the PoP handler.
func (d *Dispatcher) Handler() *pop.Handler { return d.handler }

// Dispatch authenticates tx, routes it and applies it. The returned error is
// nil only if the transition committed. Domain rejections are returned as
// *pop.Error and recorded as InvalidPlay.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *transaction.Transaction) (Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hash := tx.Hash()
	receipt := Receipt{TxHash: hash, Call: tx.Call.String(), Blocks: []ledger.Block{}}
	logger := d.logger.With("tx", shortHash(hash), "call", receipt.Call)

	caller, err := tx.Authenticate()
	if err != nil {
		logger.Warn("rejected unauthenticated transaction", "error", err)
		receipt.Error = err.Error()
		return receipt, fmt.Errorf("authenticate: %w", err)
	}
	receipt.Caller = caller
	logger = logger.With("caller", shortHash(string(caller)))

	var fn ledger.TransitionFunc
	switch tx.Call {
	case transaction.CallSubmitPoP:
		fn = func(l pop.Ledger, sink pop.EventSink) error {
			return d.handler.SubmitPoP(l, sink, caller, tx.Args.Player, tx.Args.Entropy)
		}
	default:
		logger.Warn("rejected transaction", "error", ErrUnknownCall)
		receipt.Error = ErrUnknownCall.Error()
		return receipt, ErrUnknownCall
	}

	blocks, err := d.state.Transition(ctx, hash, fn)
	if err != nil {
		receipt.Error = err.Error()
		kind := pop.KindOf(err)
		if kind == pop.KindNone {
			logger.Error("transition failed", "error", err)
			return receipt, err
		}
		receipt.Reason = kind
		block, recErr := d.state.Record(ctx, hash, pop.InvalidPlay(kind))
		if recErr != nil {
			logger.Error("failed to record invalid play", "reason", kind, "error", recErr)
			return receipt, errors.Join(err, fmt.Errorf("record invalid play: %w", recErr))
		}
		receipt.Blocks = append(receipt.Blocks, block)
		d.feed.publish(block)
		logger.Info("invalid play", "reason", kind, "entropy", tx.Args.Entropy)
		return receipt, err
	}

	receipt.Blocks = blocks
	d.feed.publish(blocks...)
	logger.Info("play verified", "entropy", tx.Args.Entropy, "blocks", len(blocks))
	return receipt, nil
}

// Validate authenticates tx and runs the handler's input checks without
// touching state.
func (d *Dispatcher) Validate(tx *transaction.Transaction) (pop.AccountID, error) {
	caller, err := tx.Authenticate()
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if tx.Call != transaction.CallSubmitPoP {
		return caller, ErrUnknownCall
	}
	return caller, d.handler.Validate(tx.Session())
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
