// Package store holds the persistent implementations of the dispatcher's
// host state: store/sqlite on modernc.org/sqlite and store/postgres on gorm.
//
// Both keep the same record chain as ledger.Blockchain, so a chain read back
// from either store verifies with ledger.VerifyChain.
package store

import (
	"fmt"
	"strconv"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// FormatBalance encodes a balance for storage. Balances are stored as
// decimal text because SQL integers are signed 64-bit.
func FormatBalance(b pop.Balance) string {
	return strconv.FormatUint(uint64(b), 10)
}

// ParseBalance decodes a balance written by FormatBalance.
func ParseBalance(s string) (pop.Balance, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", s, err)
	}
	return pop.Balance(v), nil
}

// ParseReason decodes a stored rejection kind.
func ParseReason(s string) (pop.ErrorKind, error) {
	k, ok := pop.ParseErrorKind(s)
	if !ok {
		return pop.KindNone, fmt.Errorf("unknown reason %q", s)
	}
	return k, nil
}
