package rpc

import (
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"pairlink/internal/domain"
)

// idGenerator issues process-unique, monotonically increasing request
// ids seeded from the wall clock in microseconds; concurrent callers
// never observe the same value twice.
type idGenerator struct {
	clk  clock.Clock
	last atomic.Int64
}

func newIDGenerator(clk clock.Clock) *idGenerator {
	return &idGenerator{clk: clk}
}

func (g *idGenerator) Next() domain.RequestID {
	for {
		now := g.clk.Now().UnixMicro()
		prev := g.last.Load()
		if now <= prev {
			now = prev + 1
		}
		if g.last.CompareAndSwap(prev, now) {
			return domain.RequestID(now)
		}
	}
}
