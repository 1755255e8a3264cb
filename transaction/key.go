package transaction

import (
	"encoding/hex"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/eddsa"
	"go.dedis.ch/kyber/v4/suites"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// Key is an account signing key.
type Key struct {
	signer *eddsa.EdDSA
}

// GenerateKey creates a fresh random key.
func GenerateKey() *Key {
	return &Key{signer: eddsa.NewEdDSA(suite.RandomStream())}
}

// KeyFromBytes restores a key produced by Key.Bytes.
func KeyFromBytes(b []byte) (*Key, error) {
	signer := &eddsa.EdDSA{}
	if err := signer.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return &Key{signer: signer}, nil
}

// Bytes returns the private seed followed by the public key.
// Handle with care as this exposes sensitive cryptographic material.
func (k *Key) Bytes() ([]byte, error) {
	return k.signer.MarshalBinary()
}

// PublicKey returns the encoded public point.
func (k *Key) PublicKey() []byte {
	b, err := k.signer.Public.MarshalBinary()
	if err != nil {
		// Ed25519 points always marshal.
		panic(err)
	}
	return b
}

// Account returns the account identified by this key.
func (k *Key) Account() pop.AccountID {
	return pop.AccountID(hex.EncodeToString(k.PublicKey()))
}

func (k *Key) sign(msg []byte) ([]byte, error) {
	return k.signer.Sign(msg)
}

// decodePublic parses an encoded public point.
func decodePublic(b []byte) (kyber.Point, error) {
	p := suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return p, nil
}
