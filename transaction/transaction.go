// Package transaction defines the signed call envelope submitted to the
// node and its authentication.
package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.dedis.ch/kyber/v4/sign/eddsa"

	"github.com/luca-patrignani/proof-of-play/codec"
	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// Call selects the handler a transaction is routed to.
type Call uint32

const (
	CallSubmitPoP Call = 0
)

func (c Call) String() string {
	switch c {
	case CallSubmitPoP:
		return "submit_pop"
	default:
		return fmt.Sprintf("call(%d)", uint32(c))
	}
}

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSigner        = errors.New("malformed signer public key")
	ErrBadSignature     = errors.New("bad signature")
)

// SubmitPoPArgs are the arguments of CallSubmitPoP.
type SubmitPoPArgs struct {
	Player    []byte `json:"player"`
	Entropy   uint32 `json:"entropy"`
	Timestamp uint64 `json:"timestamp"`
}

// Transaction is a signed call.
type Transaction struct {
	Call      Call          `json:"call"`
	Signer    []byte        `json:"signer"`
	Args      SubmitPoPArgs `json:"args"`
	Signature []byte        `json:"sig,omitempty"`
}

// NewSubmitPoP builds an unsigned submit_pop transaction stamped with the
// current time in milliseconds.
func NewSubmitPoP(player []byte, entropy uint32) *Transaction {
	return &Transaction{
		Call: CallSubmitPoP,
		Args: SubmitPoPArgs{
			Player:    player,
			Entropy:   entropy,
			Timestamp: uint64(time.Now().UnixMilli()),
		},
	}
}

// serialize returns the signed bytes: every field except the signature.
func (tx *Transaction) serialize() []byte {
	return codec.EncodeCall(codec.Call{
		Index:     uint32(tx.Call),
		Signer:    tx.Signer,
		Player:    tx.Args.Player,
		Entropy:   tx.Args.Entropy,
		Timestamp: tx.Args.Timestamp,
	})
}

// Sign sets the signer to key and signs the transaction.
func (tx *Transaction) Sign(key *Key) error {
	tx.Signer = key.PublicKey()
	sig, err := key.sign(tx.serialize())
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signature = sig
	return nil
}

// Authenticate verifies the signature and returns the signing account.
func (tx *Transaction) Authenticate() (pop.AccountID, error) {
	if len(tx.Signature) == 0 {
		return "", ErrMissingSignature
	}
	pub, err := decodePublic(tx.Signer)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSigner, err)
	}
	if err := eddsa.Verify(pub, tx.serialize(), tx.Signature); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return pop.AccountID(hex.EncodeToString(tx.Signer)), nil
}

// Hash identifies the transaction, signature included.
func (tx *Transaction) Hash() string {
	h := sha256.New()
	h.Write(tx.serialize())
	h.Write(tx.Signature)
	return hex.EncodeToString(h.Sum(nil))
}

// Session returns the play session carried by a submit_pop transaction.
func (tx *Transaction) Session() pop.PlaySession {
	return pop.PlaySession{
		Player:    tx.Args.Player,
		Entropy:   tx.Args.Entropy,
		Timestamp: tx.Args.Timestamp,
	}
}
