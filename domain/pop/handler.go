package pop

import (
	"fmt"
	"math"
)

// Ledger is the account balance service the handler mints through.
type Ledger interface {
	// Credit creates amount of new supply in account. It is not a transfer.
	Credit(account AccountID, amount Balance) error

	// BalanceOf returns the current balance of account, zero if unknown.
	BalanceOf(account AccountID) (Balance, error)
}

// EventSink receives outcome records.
type EventSink interface {
	Deposit(e Event) error
}

// Handler validates Proof of Play submissions and mints TT for valid ones.
// It holds no state across calls.
type Handler struct {
	minEntropy uint32
	mintAmount Balance
}

type option func(Handler) Handler

// NewHandler returns a handler using the default threshold and mint amount
// unless overridden by opts.
func NewHandler(opts ...option) *Handler {
	h := Handler{
		minEntropy: DefaultMinEntropy,
		mintAmount: DefaultMintAmount,
	}
	for _, opt := range opts {
		h = opt(h)
	}
	return &h
}

func WithMinEntropy(min uint32) option {
	return func(h Handler) Handler {
		h.minEntropy = min
		return h
	}
}

func WithMintAmount(amount Balance) option {
	return func(h Handler) Handler {
		h.mintAmount = amount
		return h
	}
}

func (h *Handler) MinEntropy() uint32 { return h.minEntropy }

func (h *Handler) MintAmount() Balance { return h.mintAmount }

// Validate runs the input checks of SubmitPoP without touching the ledger.
// The entropy check always comes first.
func (h *Handler) Validate(s PlaySession) error {
	if s.Entropy < h.minEntropy {
		return ErrLowEntropy
	}
	if len(s.Player) == 0 {
		return ErrInvalidPlayer
	}
	return nil
}

// SubmitPoP validates a play session submitted by caller and, if valid,
// credits caller with the mint amount and deposits a PlayVerified record.
//
// caller must already be authenticated. On any returned rejection the ledger
// has not been mutated. Atomicity of the credit and the record is up to the
// transition the handler runs in: if Deposit fails after Credit, the error is
// returned and the transition must be discarded.
func (h *Handler) SubmitPoP(l Ledger, sink EventSink, caller AccountID, player []byte, entropy uint32) error {
	if err := h.Validate(PlaySession{Player: player, Entropy: entropy}); err != nil {
		return err
	}

	mint := h.mintAmount
	balance, err := l.BalanceOf(caller)
	if err != nil {
		return fmt.Errorf("read balance of %s: %w", caller, err)
	}
	if balance > Balance(math.MaxUint64)-mint {
		return ErrOverflow
	}
	if err := l.Credit(caller, mint); err != nil {
		return fmt.Errorf("credit %s: %w", caller, err)
	}

	if err := sink.Deposit(PlayVerified(caller, entropy, mint)); err != nil {
		return fmt.Errorf("deposit event: %w", err)
	}
	return nil
}
