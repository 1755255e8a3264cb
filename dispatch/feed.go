package dispatch

import (
	"sync"

	"github.com/luca-patrignani/proof-of-play/ledger"
)

const feedBuffer = 64

// Feed fans out committed blocks to subscribers. A subscriber that falls
// more than feedBuffer blocks behind misses blocks instead of stalling
// transitions.
type Feed struct {
	mu   sync.Mutex
	next int
	subs map[int]chan ledger.Block
}

func NewFeed() *Feed {
	return &Feed{subs: map[int]chan ledger.Block{}}
}

// Subscribe returns a channel of new blocks and a function that cancels the
// subscription and closes the channel.
func (f *Feed) Subscribe() (<-chan ledger.Block, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan ledger.Block, feedBuffer)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

func (f *Feed) publish(blocks ...ledger.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range blocks {
		for _, ch := range f.subs {
			select {
			case ch <- b:
			default:
			}
		}
	}
}
