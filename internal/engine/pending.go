package engine

import (
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"pairlink/internal/domain"
)

// pendingCacheSize bounds the in-memory fast path; the persisted store
// remains authoritative.
const pendingCacheSize = 1024

// pendingProposals is the bounded, expiring set of inbound proposals
// awaiting a Respond decision. A TTL'd LRU fronts the persisted store;
// entries that outlive the protocol's proposal lifetime are treated as
// gone even if still on disk.
type pendingProposals struct {
	cache *lru.LRU[domain.RequestID, domain.PendingRequest]
	store domain.PendingRequestStore
	ttl   time.Duration
	clk   clock.Clock
}

func newPendingProposals(store domain.PendingRequestStore, ttl time.Duration, clk clock.Clock) *pendingProposals {
	return &pendingProposals{
		cache: lru.NewLRU[domain.RequestID, domain.PendingRequest](pendingCacheSize, nil, ttl),
		store: store,
		ttl:   ttl,
		clk:   clk,
	}
}

func (p *pendingProposals) Add(req domain.PendingRequest) error {
	if err := p.store.Save(req); err != nil {
		return err
	}
	p.cache.Add(req.ID, req)
	return nil
}

func (p *pendingProposals) Get(id domain.RequestID) (domain.PendingRequest, bool, error) {
	if req, ok := p.cache.Get(id); ok {
		return req, true, nil
	}
	req, ok, err := p.store.Load(id)
	if err != nil || !ok {
		return domain.PendingRequest{}, false, err
	}
	if p.clk.Now().Sub(req.CreatedAt) > p.ttl {
		_ = p.store.Delete(id)
		return domain.PendingRequest{}, false, nil
	}
	return req, true, nil
}

func (p *pendingProposals) Remove(id domain.RequestID) error {
	p.cache.Remove(id)
	return p.store.Delete(id)
}
