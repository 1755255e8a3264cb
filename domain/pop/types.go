package pop

// AccountID identifies an authenticated ledger account.
type AccountID string

// Balance is the native balance representation of the ledger.
type Balance uint64

const (
	// DefaultMinEntropy is 0.2 seconds of reaction time in scaled units.
	DefaultMinEntropy uint32 = 20

	// DefaultMintAmount is one TT per valid session.
	DefaultMintAmount Balance = 1
)

// PlaySession is one completed timed-interaction attempt. It only lives for
// the duration of a submission.
type PlaySession struct {
	Player    []byte `json:"player"` // UGID hash
	Entropy   uint32 `json:"entropy"`
	Timestamp uint64 `json:"timestamp"`
}
