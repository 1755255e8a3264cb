// Package codec defines the canonical binary encoding used for transaction
// signing bytes and for hashing outcome records into the chain.
//
// Fields are written in ascending field-number order using the protobuf wire
// format, so identical values always encode to identical bytes.
package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// Call is the signed portion of a transaction.
type Call struct {
	Index     uint32
	Signer    []byte
	Player    []byte
	Entropy   uint32
	Timestamp uint64
}

const (
	callIndex protowire.Number = iota + 1
	callSigner
	callPlayer
	callEntropy
	callTimestamp
)

const (
	eventKind protowire.Number = iota + 1
	eventPlayer
	eventEntropy
	eventMinted
	eventReason
)

// EncodeCall returns the canonical encoding of c.
func EncodeCall(c Call) []byte {
	var b []byte
	b = protowire.AppendTag(b, callIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Index))
	b = protowire.AppendTag(b, callSigner, protowire.BytesType)
	b = protowire.AppendBytes(b, c.Signer)
	b = protowire.AppendTag(b, callPlayer, protowire.BytesType)
	b = protowire.AppendBytes(b, c.Player)
	b = protowire.AppendTag(b, callEntropy, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Entropy))
	b = protowire.AppendTag(b, callTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, c.Timestamp)
	return b
}

// DecodeCall parses b produced by EncodeCall. Unknown fields are skipped.
func DecodeCall(b []byte) (Call, error) {
	var c Call
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Call{}, fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case typ == protowire.VarintType && (num == callIndex || num == callEntropy || num == callTimestamp):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Call{}, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case callIndex:
				if v > uint64(^uint32(0)) {
					return Call{}, errors.New("call index out of range")
				}
				c.Index = uint32(v)
			case callEntropy:
				if v > uint64(^uint32(0)) {
					return Call{}, errors.New("entropy out of range")
				}
				c.Entropy = uint32(v)
			case callTimestamp:
				c.Timestamp = v
			}
		case typ == protowire.BytesType && (num == callSigner || num == callPlayer):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Call{}, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			v = append([]byte{}, v...)
			if num == callSigner {
				c.Signer = v
			} else {
				c.Player = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Call{}, fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return c, nil
}

// EncodeEvent returns the canonical encoding of e. Zero-valued fields are
// omitted, so the two event variants never collide.
func EncodeEvent(e pop.Event) []byte {
	var b []byte
	b = protowire.AppendTag(b, eventKind, protowire.BytesType)
	b = protowire.AppendString(b, string(e.Kind))
	if e.Player != "" {
		b = protowire.AppendTag(b, eventPlayer, protowire.BytesType)
		b = protowire.AppendString(b, string(e.Player))
	}
	if e.Entropy != 0 {
		b = protowire.AppendTag(b, eventEntropy, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Entropy))
	}
	if e.Minted != 0 {
		b = protowire.AppendTag(b, eventMinted, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Minted))
	}
	if e.Reason != pop.KindNone {
		b = protowire.AppendTag(b, eventReason, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Reason))
	}
	return b
}
