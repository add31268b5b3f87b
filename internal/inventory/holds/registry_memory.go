package holds

import (
	"context"
	"sync"
	"time"

	id "hemobank/pkg/domain"
)

type hold struct {
	requestID id.RequestID
	expiresAt time.Time
}

// InMemoryRegistry keeps holds in a mutex-guarded map with lazy expiry.
type InMemoryRegistry struct {
	mu    sync.Mutex
	holds map[id.UnitID]hold
	clock func() time.Time
}

type MemoryOption func(*InMemoryRegistry)

// WithClock injects a clock for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(r *InMemoryRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewInMemoryRegistry(opts ...MemoryOption) *InMemoryRegistry {
	r := &InMemoryRegistry{holds: make(map[id.UnitID]hold), clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRegistry) Place(_ context.Context, unitID id.UnitID, requestID id.RequestID, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holds[unitID] = hold{requestID: requestID, expiresAt: r.clock().Add(ttl)}
	return nil
}

func (r *InMemoryRegistry) Live(_ context.Context, unitID id.UnitID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[unitID]
	if !ok {
		return false, nil
	}
	if r.clock().After(h.expiresAt) {
		delete(r.holds, unitID)
		return false, nil
	}
	return true, nil
}

func (r *InMemoryRegistry) Release(_ context.Context, unitID id.UnitID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.holds, unitID)
	return nil
}
