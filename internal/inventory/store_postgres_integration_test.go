//go:build integration

package inventory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hemobank/internal/inventory"
	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *inventory.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = inventory.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "blood_units")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) insertAvailable() *inventory.BloodUnit {
	now := time.Now().UTC().Truncate(time.Microsecond)
	unit := &inventory.BloodUnit{
		ID:          id.NewUnitID(),
		DonorID:     id.NewPersonID(),
		BloodType:   id.BloodType{ABO: id.ABOO, Rh: id.RhNegative},
		Component:   id.ComponentRedCells,
		VolumeML:    300,
		CollectedAt: now,
		ExpiresAt:   now.Add(42 * 24 * time.Hour),
		Status:      inventory.StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.store.Insert(context.Background(), unit))
	return unit
}

// TestConcurrentReserve verifies the conditional UPDATE lets exactly one
// reservation win per unit.
func (s *PostgresStoreSuite) TestConcurrentReserve() {
	ctx := context.Background()
	unit := s.insertAvailable()
	const goroutines = 30

	var wg sync.WaitGroup
	var won atomic.Int32
	var lost atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Reserve(ctx, unit.ID, id.NewRequestID(), time.Now().UTC())
			switch {
			case err == nil:
				won.Add(1)
			default:
				s.Require().ErrorIs(err, sentinel.ErrConflict)
				lost.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(goroutines-1), lost.Load())

	got, err := s.store.Get(ctx, unit.ID)
	s.Require().NoError(err)
	s.Equal(inventory.StatusReserved, got.Status)
}

func (s *PostgresStoreSuite) TestIssueRequiresMatchingReservation() {
	ctx := context.Background()
	unit := s.insertAvailable()
	requestID := id.NewRequestID()
	s.Require().NoError(s.store.Reserve(ctx, unit.ID, requestID, time.Now().UTC()))

	// A different request holds no claim on the unit.
	err := s.store.MarkIssued(ctx, unit.ID, id.NewRequestID(), time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.MarkIssued(ctx, unit.ID, requestID, time.Now().UTC()))

	// Issued is terminal; a second issuance is an illegal transition.
	err = s.store.MarkIssued(ctx, unit.ID, requestID, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrInvalidTransition)
}

func (s *PostgresStoreSuite) TestTerminalStatesRejectTransitions() {
	ctx := context.Background()
	unit := s.insertAvailable()
	s.Require().NoError(s.store.MarkExpired(ctx, unit.ID))

	err := s.store.Reserve(ctx, unit.ID, id.NewRequestID(), time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrInvalidTransition)

	err = s.store.MarkExpired(ctx, unit.ID)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestReleaseRoundTrip() {
	ctx := context.Background()
	unit := s.insertAvailable()
	requestID := id.NewRequestID()
	s.Require().NoError(s.store.Reserve(ctx, unit.ID, requestID, time.Now().UTC()))
	s.Require().NoError(s.store.ReleaseReservation(ctx, unit.ID))

	got, err := s.store.Get(ctx, unit.ID)
	s.Require().NoError(err)
	s.Equal(inventory.StatusAvailable, got.Status)
	s.Nil(got.ReservedFor)

	// The unit is reservable again.
	s.Require().NoError(s.store.Reserve(ctx, unit.ID, id.NewRequestID(), time.Now().UTC()))
}
