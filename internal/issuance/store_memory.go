package issuance

import (
	"context"
	"sync"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	byUnit    map[id.UnitID]*Record
	byRequest map[id.RequestID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byUnit:    make(map[id.UnitID]*Record),
		byRequest: make(map[id.RequestID]*Record),
	}
}

func (s *InMemoryStore) Append(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUnit[record.UnitID]; ok {
		return sentinel.ErrConflict
	}
	copied := *record
	s.byUnit[record.UnitID] = &copied
	s.byRequest[record.RequestID] = &copied
	return nil
}

func (s *InMemoryStore) GetByRequest(_ context.Context, requestID id.RequestID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byRequest[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) GetByUnit(_ context.Context, unitID id.UnitID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byUnit[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}
