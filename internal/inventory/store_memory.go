package inventory

import (
	"context"
	"sync"
	"time"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// InMemoryStore keeps units in a mutex-guarded map. The mutex gives the same
// linearizable-per-unit guarantee the conditional UPDATEs give in Postgres.
type InMemoryStore struct {
	mu    sync.RWMutex
	units map[id.UnitID]*BloodUnit
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{units: make(map[id.UnitID]*BloodUnit)}
}

func (s *InMemoryStore) Get(_ context.Context, unitID id.UnitID) (*BloodUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *unit
	return &copied, nil
}

func (s *InMemoryStore) Insert(_ context.Context, unit *BloodUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[unit.ID]; ok {
		return sentinel.ErrConflict
	}
	copied := *unit
	s.units[unit.ID] = &copied
	return nil
}

func (s *InMemoryStore) ListAvailable(_ context.Context, component id.Component) ([]*BloodUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BloodUnit
	for _, unit := range s.units {
		if unit.Status == StatusAvailable && unit.Component == component {
			copied := *unit
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses ...UnitStatus) ([]*BloodUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BloodUnit
	for _, unit := range s.units {
		for _, status := range statuses {
			if unit.Status == status {
				copied := *unit
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) Reserve(_ context.Context, unitID id.UnitID, requestID id.RequestID, at time.Time) error {
	return s.swap(unitID, StatusAvailable, StatusReserved, func(unit *BloodUnit) {
		unit.ReservedFor = &requestID
		unit.ReservedAt = &at
	})
}

func (s *InMemoryStore) ReleaseReservation(_ context.Context, unitID id.UnitID) error {
	return s.swap(unitID, StatusReserved, StatusAvailable, func(unit *BloodUnit) {
		unit.ReservedFor = nil
		unit.ReservedAt = nil
	})
}

func (s *InMemoryStore) MarkIssued(_ context.Context, unitID id.UnitID, requestID id.RequestID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[unitID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !CanTransition(unit.Status, StatusIssued) {
		return sentinel.ErrInvalidTransition
	}
	if unit.ReservedFor == nil || *unit.ReservedFor != requestID {
		// Reserved, but for someone else; the caller lost its hold.
		return sentinel.ErrConflict
	}
	unit.Status = StatusIssued
	unit.IssuedAt = &at
	unit.UpdatedAt = at
	return nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, unitID id.UnitID) error {
	return s.swap(unitID, StatusTemporaryPending, StatusProcessed, nil)
}

func (s *InMemoryStore) MarkDiscarded(_ context.Context, unitID id.UnitID, reason string) error {
	return s.swap(unitID, StatusTemporaryPending, StatusDiscarded, func(unit *BloodUnit) {
		unit.DiscardReason = reason
	})
}

func (s *InMemoryStore) MarkExpired(_ context.Context, unitID id.UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[unitID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !CanTransition(unit.Status, StatusExpired) {
		if unit.Status == StatusExpired {
			// Another sweeper got here first.
			return sentinel.ErrConflict
		}
		return sentinel.ErrInvalidTransition
	}
	unit.Status = StatusExpired
	unit.UpdatedAt = time.Now()
	return nil
}

// swap performs the compare-and-set under the store lock. A legal-but-lost
// race yields ErrConflict; an illegal step yields ErrInvalidTransition.
func (s *InMemoryStore) swap(unitID id.UnitID, from, to UnitStatus, mutate func(*BloodUnit)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[unitID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !CanTransition(from, to) {
		return sentinel.ErrInvalidTransition
	}
	if unit.Status != from {
		// The step itself is legal but the unit moved under us. A writer that
		// already made this exact transition, or any state the step could
		// still be retried from, is a race; everything else is misuse.
		if unit.Status == to || CanTransition(unit.Status, to) {
			return sentinel.ErrConflict
		}
		return sentinel.ErrInvalidTransition
	}
	unit.Status = to
	if mutate != nil {
		mutate(unit)
	}
	unit.UpdatedAt = time.Now()
	return nil
}
