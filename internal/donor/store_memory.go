package donor

import (
	"context"
	"sync"
	"time"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// InMemoryStore keeps donor records in a mutex-guarded map. Suitable for tests
// and single-node deployments; use PostgresStore for anything shared.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.PersonID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.PersonID]*Record)}
}

func (s *InMemoryStore) Get(_ context.Context, personID id.PersonID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.PersonID]; ok {
		return sentinel.ErrConflict
	}
	copied := *record
	s.records[record.PersonID] = &copied
	return nil
}

func (s *InMemoryStore) UpdateCommitment(_ context.Context, personID id.PersonID, from, to Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[personID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Commitment != from {
		return sentinel.ErrConflict
	}
	record.Commitment = to
	record.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) RecordCollection(_ context.Context, personID id.PersonID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[personID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Commitment != CommitmentScheduled {
		return sentinel.ErrConflict
	}
	record.Commitment = CommitmentAwaitingProcessing
	record.LastDonationAt = &at
	record.UpdatedAt = at
	return nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, personID id.PersonID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[personID]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.ProcessedDonations++
	if record.Commitment == CommitmentAwaitingProcessing {
		record.Commitment = CommitmentNone
	}
	record.UpdatedAt = at
	return nil
}
