package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hemobank/internal/donor"
	"hemobank/internal/inventory"
	"hemobank/internal/inventory/holds"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	units    *inventory.InMemoryStore
	donors   *donor.InMemoryStore
	registry *holds.InMemoryRegistry
	service  *Service

	now   time.Time
	clock func() time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.units = inventory.NewInMemoryStore()
	s.donors = donor.NewInMemoryStore()
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return s.now }
	s.registry = holds.NewInMemoryRegistry(holds.WithClock(func() time.Time { return s.clock() }))

	svc, err := New(s.units, s.donors, s.registry)
	s.Require().NoError(err)
	s.service = svc
}

// ctx pins the request clock to the suite clock.
func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.clock())
}

func (s *ServiceSuite) scheduledDonor() id.PersonID {
	donorID := id.NewPersonID()
	err := s.donors.Create(context.Background(), &donor.Record{
		PersonID:   donorID,
		BloodType:  id.BloodType{ABO: id.ABOO, Rh: id.RhNegative},
		Commitment: donor.CommitmentScheduled,
		CreatedAt:  s.now,
		UpdatedAt:  s.now,
	})
	s.Require().NoError(err)
	return donorID
}

func (s *ServiceSuite) collect(donorID id.PersonID, volumeML int) *inventory.BloodUnit {
	unit, err := s.service.RecordCollection(s.ctx(), donorID,
		id.BloodType{ABO: id.ABOO, Rh: id.RhNegative}, id.ComponentWholeBlood, volumeML)
	s.Require().NoError(err)
	return unit
}

func (s *ServiceSuite) TestRecordCollection() {
	s.Run("enters a pending unit and stamps the donor", func() {
		donorID := s.scheduledDonor()

		unit := s.collect(donorID, 450)
		s.Equal(inventory.StatusTemporaryPending, unit.Status)
		s.Equal(450, unit.VolumeML)
		s.Equal(s.now, unit.CollectedAt)
		s.Equal(s.now.Add(id.ComponentWholeBlood.ShelfLife()), unit.ExpiresAt)

		record, err := s.donors.Get(context.Background(), donorID)
		s.Require().NoError(err)
		s.Equal(donor.CommitmentAwaitingProcessing, record.Commitment)
		s.Require().NotNil(record.LastDonationAt)
		s.Equal(s.now, *record.LastDonationAt)
	})

	s.Run("requires a scheduled donation", func() {
		donorID := id.NewPersonID()
		err := s.donors.Create(context.Background(), &donor.Record{
			PersonID:   donorID,
			Commitment: donor.CommitmentNone,
		})
		s.Require().NoError(err)

		_, err = s.service.RecordCollection(s.ctx(), donorID,
			id.BloodType{ABO: id.ABOA, Rh: id.RhPositive}, id.ComponentWholeBlood, 450)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects unknown donors", func() {
		_, err := s.service.RecordCollection(s.ctx(), id.NewPersonID(),
			id.BloodType{ABO: id.ABOA, Rh: id.RhPositive}, id.ComponentWholeBlood, 450)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects non-positive volume", func() {
		_, err := s.service.RecordCollection(s.ctx(), s.scheduledDonor(),
			id.BloodType{ABO: id.ABOA, Rh: id.RhPositive}, id.ComponentWholeBlood, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestProcess() {
	s.Run("splits into bank units and settles the donor", func() {
		donorID := s.scheduledDonor()
		parent := s.collect(donorID, 450)

		children, err := s.service.Process(s.ctx(), parent.ID, []inventory.Split{
			{Component: id.ComponentRedCells, VolumeML: 300},
			{Component: id.ComponentPlasma, VolumeML: 150},
		})
		s.Require().NoError(err)
		s.Require().Len(children, 2)

		for _, child := range children {
			s.Equal(inventory.StatusAvailable, child.Status)
			s.Equal(parent.BloodType, child.BloodType)
			s.Equal(parent.CollectedAt, child.CollectedAt)
			s.Require().NotNil(child.ParentID)
			s.Equal(parent.ID, *child.ParentID)
			// Shelf life counts from collection, not from processing.
			s.Equal(parent.CollectedAt.Add(child.Component.ShelfLife()), child.ExpiresAt)
		}

		got, err := s.units.Get(context.Background(), parent.ID)
		s.Require().NoError(err)
		s.Equal(inventory.StatusProcessed, got.Status)

		record, err := s.donors.Get(context.Background(), donorID)
		s.Require().NoError(err)
		s.Equal(donor.CommitmentNone, record.Commitment)
		s.Equal(1, record.ProcessedDonations)
	})

	s.Run("rejects splits exceeding the collected volume", func() {
		parent := s.collect(s.scheduledDonor(), 450)

		_, err := s.service.Process(s.ctx(), parent.ID, []inventory.Split{
			{Component: id.ComponentRedCells, VolumeML: 300},
			{Component: id.ComponentPlasma, VolumeML: 200},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		got, err := s.units.Get(context.Background(), parent.ID)
		s.Require().NoError(err)
		s.Equal(inventory.StatusTemporaryPending, got.Status)
	})

	s.Run("rejects empty and non-positive splits", func() {
		parent := s.collect(s.scheduledDonor(), 450)

		_, err := s.service.Process(s.ctx(), parent.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Process(s.ctx(), parent.ID, []inventory.Split{
			{Component: id.ComponentPlasma, VolumeML: -10},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("a processed unit cannot be processed again", func() {
		parent := s.collect(s.scheduledDonor(), 450)
		_, err := s.service.Process(s.ctx(), parent.ID, []inventory.Split{
			{Component: id.ComponentPlasma, VolumeML: 150},
		})
		s.Require().NoError(err)

		_, err = s.service.Process(s.ctx(), parent.ID, []inventory.Split{
			{Component: id.ComponentPlasma, VolumeML: 150},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestDiscard() {
	s.Run("disposes of a raw unit and frees the donor", func() {
		donorID := s.scheduledDonor()
		unit := s.collect(donorID, 450)

		s.Require().NoError(s.service.Discard(s.ctx(), unit.ID, "failed screening"))

		got, err := s.units.Get(context.Background(), unit.ID)
		s.Require().NoError(err)
		s.Equal(inventory.StatusDiscarded, got.Status)
		s.Equal("failed screening", got.DiscardReason)

		record, err := s.donors.Get(context.Background(), donorID)
		s.Require().NoError(err)
		s.Equal(donor.CommitmentNone, record.Commitment)
		s.Zero(record.ProcessedDonations)
	})

	s.Run("requires a reason", func() {
		unit := s.collect(s.scheduledDonor(), 450)
		err := s.service.Discard(s.ctx(), unit.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("issued units cannot be discarded", func() {
		unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
		requestID := id.NewRequestID()
		s.Require().NoError(s.service.Reserve(s.ctx(), unit.ID, requestID))
		s.Require().NoError(s.service.Issue(s.ctx(), unit.ID, requestID))

		err := s.service.Discard(s.ctx(), unit.ID, "late")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) availableUnit(component id.Component, expiresAt time.Time) *inventory.BloodUnit {
	unit := &inventory.BloodUnit{
		ID:          id.NewUnitID(),
		DonorID:     id.NewPersonID(),
		BloodType:   id.BloodType{ABO: id.ABOO, Rh: id.RhNegative},
		Component:   component,
		VolumeML:    300,
		CollectedAt: s.now,
		ExpiresAt:   expiresAt,
		Status:      inventory.StatusAvailable,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	s.Require().NoError(s.units.Insert(context.Background(), unit))
	return unit
}

func (s *ServiceSuite) TestReserveAndRelease() {
	unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
	requestID := id.NewRequestID()

	s.Require().NoError(s.service.Reserve(s.ctx(), unit.ID, requestID))

	live, err := s.registry.Live(context.Background(), unit.ID)
	s.Require().NoError(err)
	s.True(live)

	got, err := s.units.Get(context.Background(), unit.ID)
	s.Require().NoError(err)
	s.Equal(inventory.StatusReserved, got.Status)
	s.Require().NotNil(got.ReservedFor)
	s.Equal(requestID, *got.ReservedFor)

	s.Require().NoError(s.service.Release(s.ctx(), unit.ID))
	// Idempotent.
	s.Require().NoError(s.service.Release(s.ctx(), unit.ID))

	got, err = s.units.Get(context.Background(), unit.ID)
	s.Require().NoError(err)
	s.Equal(inventory.StatusAvailable, got.Status)

	live, err = s.registry.Live(context.Background(), unit.ID)
	s.Require().NoError(err)
	s.False(live)
}

func (s *ServiceSuite) TestSweepExpired() {
	s.Run("expires units past shelf life", func() {
		stale := s.availableUnit(id.ComponentPlatelets, s.now.Add(-time.Hour))
		fresh := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))

		expired, released, err := s.service.SweepExpired(s.ctx())
		s.Require().NoError(err)
		s.Equal(1, expired)
		s.Zero(released)

		got, err := s.units.Get(context.Background(), stale.ID)
		s.Require().NoError(err)
		s.Equal(inventory.StatusExpired, got.Status)

		got, err = s.units.Get(context.Background(), fresh.ID)
		s.Require().NoError(err)
		s.Equal(inventory.StatusAvailable, got.Status)
	})

}

func (s *ServiceSuite) TestSweepReleasesStaleReservations() {
	svc, err := New(s.units, s.donors, s.registry, WithReservationGrace(10*time.Minute))
	s.Require().NoError(err)

	unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
	s.Require().NoError(svc.Reserve(s.ctx(), unit.ID, id.NewRequestID()))

	// Within grace and with a live hold: untouched.
	expired, released, err := svc.SweepExpired(s.ctx())
	s.Require().NoError(err)
	s.Zero(expired)
	s.Zero(released)

	// Advance past both the hold TTL and the grace window.
	s.now = s.now.Add(11 * time.Minute)

	expired, released, err = svc.SweepExpired(s.ctx())
	s.Require().NoError(err)
	s.Zero(expired)
	s.Equal(1, released)

	got, err := s.units.Get(context.Background(), unit.ID)
	s.Require().NoError(err)
	s.Equal(inventory.StatusAvailable, got.Status)
}

func (s *ServiceSuite) TestSweepKeepsReservationWhileHoldIsLive() {
	svc, err := New(s.units, s.donors, s.registry, WithReservationGrace(10*time.Minute))
	s.Require().NoError(err)

	unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
	s.Require().NoError(svc.Reserve(s.ctx(), unit.ID, id.NewRequestID()))

	// Re-arm the hold with a longer TTL than the grace window, as a crashed
	// issuance retry would.
	s.Require().NoError(s.registry.Place(context.Background(), unit.ID, id.NewRequestID(), time.Hour))
	s.now = s.now.Add(30 * time.Minute)

	expired, released, err := svc.SweepExpired(s.ctx())
	s.Require().NoError(err)
	s.Zero(expired)
	s.Zero(released)

	got, err := s.units.Get(context.Background(), unit.ID)
	s.Require().NoError(err)
	s.Equal(inventory.StatusReserved, got.Status)
}

func (s *ServiceSuite) TestIssue() {
	s.Run("finalizes a matching reservation", func() {
		unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
		requestID := id.NewRequestID()
		s.Require().NoError(s.service.Reserve(s.ctx(), unit.ID, requestID))

		s.Require().NoError(s.service.Issue(s.ctx(), unit.ID, requestID))

		got, err := s.units.Get(context.Background(), unit.ID)
		s.Require().NoError(err)
		s.Equal(inventory.StatusIssued, got.Status)
		s.Require().NotNil(got.IssuedAt)

		live, err := s.registry.Live(context.Background(), unit.ID)
		s.Require().NoError(err)
		s.False(live)
	})

	s.Run("passes through a mismatched reservation as a conflict", func() {
		unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
		s.Require().NoError(s.service.Reserve(s.ctx(), unit.ID, id.NewRequestID()))

		err := s.service.Issue(s.ctx(), unit.ID, id.NewRequestID())
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("a second issuance is an integrity defect", func() {
		unit := s.availableUnit(id.ComponentRedCells, s.now.Add(42*24*time.Hour))
		requestID := id.NewRequestID()
		s.Require().NoError(s.service.Reserve(s.ctx(), unit.ID, requestID))
		s.Require().NoError(s.service.Issue(s.ctx(), unit.ID, requestID))

		err := s.service.Issue(s.ctx(), unit.ID, requestID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}
