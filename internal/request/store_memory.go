package request

import (
	"context"
	"sort"
	"sync"
	"time"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a mutex-guarded map, mirroring the CAS
// semantics of the Postgres store.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*Request)}
}

func (s *InMemoryStore) Get(_ context.Context, requestID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (s *InMemoryStore) Create(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return sentinel.ErrConflict
	}
	copied := *request
	s.requests[request.ID] = &copied
	return nil
}

func (s *InMemoryStore) ListByPerson(_ context.Context, personID id.PersonID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, request := range s.requests {
		if request.PersonID == personID {
			copied := *request
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) HasActive(_ context.Context, personID id.PersonID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.requests {
		if request.PersonID == personID && request.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) Transition(_ context.Context, requestID id.RequestID, from, to Status) error {
	return s.swap(requestID, from, to, nil)
}

func (s *InMemoryStore) AttachReservation(_ context.Context, requestID id.RequestID, unitID id.UnitID) error {
	return s.mutate(requestID, func(request *Request) {
		request.ReservedUnitID = &unitID
	})
}

func (s *InMemoryStore) DetachReservation(_ context.Context, requestID id.RequestID) error {
	return s.mutate(requestID, func(request *Request) {
		request.ReservedUnitID = nil
	})
}

func (s *InMemoryStore) MarkIssued(_ context.Context, requestID id.RequestID, from Status, issuanceID id.IssuanceID, at time.Time) error {
	return s.swap(requestID, from, StatusIssued, func(request *Request) {
		request.IssuanceID = &issuanceID
		request.UpdatedAt = at
	})
}

func (s *InMemoryStore) mutate(requestID id.RequestID, mutate func(*Request)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	mutate(request)
	request.UpdatedAt = time.Now()
	return nil
}

// swap performs the status compare-and-set under the store lock. A legal step
// lost to a concurrent writer yields ErrConflict; an illegal step yields
// ErrInvalidTransition.
func (s *InMemoryStore) swap(requestID id.RequestID, from, to Status, mutate func(*Request)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !CanTransition(from, to) {
		return sentinel.ErrInvalidTransition
	}
	if request.Status != from {
		if request.Status == to || CanTransition(request.Status, to) {
			return sentinel.ErrConflict
		}
		return sentinel.ErrInvalidTransition
	}
	request.Status = to
	if mutate != nil {
		mutate(request)
	}
	request.UpdatedAt = time.Now()
	return nil
}
