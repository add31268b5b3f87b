package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hemobank/internal/donor"
	"hemobank/internal/eligibility"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

type stubGate struct {
	decision eligibility.Decision
}

func (g *stubGate) CanDonate(context.Context, id.PersonID) (eligibility.Decision, error) {
	return g.decision, nil
}

type ServiceSuite struct {
	suite.Suite
	store   *donor.InMemoryStore
	gate    *stubGate
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = donor.NewInMemoryStore()
	s.gate = &stubGate{decision: eligibility.Decision{Eligible: true}}
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	svc, err := New(s.store, s.gate)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TestRegister() {
	personID := id.NewPersonID()

	record, err := s.service.Register(s.ctx(), personID, id.BloodType{ABO: id.ABOB, Rh: id.RhNegative})
	s.Require().NoError(err)
	s.Equal(personID, record.PersonID)
	s.Equal(donor.CommitmentNone, record.Commitment)
	s.Zero(record.ProcessedDonations)

	_, err = s.service.Register(s.ctx(), personID, id.BloodType{ABO: id.ABOB, Rh: id.RhNegative})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.Register(s.ctx(), id.PersonID{}, id.BloodType{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestGet() {
	personID := id.NewPersonID()
	_, err := s.service.Get(s.ctx(), personID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Register(s.ctx(), personID, id.BloodType{ABO: id.ABOA, Rh: id.RhPositive})
	s.Require().NoError(err)

	record, err := s.service.Get(s.ctx(), personID)
	s.Require().NoError(err)
	s.Equal(personID, record.PersonID)
}

func (s *ServiceSuite) TestScheduleDonation() {
	s.Run("books an eligible registered donor", func() {
		personID := id.NewPersonID()
		_, err := s.service.Register(s.ctx(), personID, id.BloodType{ABO: id.ABOO, Rh: id.RhNegative})
		s.Require().NoError(err)

		decision, err := s.service.ScheduleDonation(s.ctx(), personID)
		s.Require().NoError(err)
		s.True(decision.Eligible)

		record, err := s.store.Get(context.Background(), personID)
		s.Require().NoError(err)
		s.Equal(donor.CommitmentScheduled, record.Commitment)
	})

	s.Run("registers a fresh donor on first contact", func() {
		personID := id.NewPersonID()

		decision, err := s.service.ScheduleDonation(s.ctx(), personID)
		s.Require().NoError(err)
		s.True(decision.Eligible)

		record, err := s.store.Get(context.Background(), personID)
		s.Require().NoError(err)
		s.Equal(donor.CommitmentScheduled, record.Commitment)
		s.False(record.BloodType.Known())
	})

	s.Run("blocked decision is returned, not an error", func() {
		s.gate.decision = eligibility.Decision{
			Eligible: false,
			Reasons:  []eligibility.Reason{{Code: eligibility.ReasonRecoveryPeriod, DaysRemaining: 12}},
		}
		personID := id.NewPersonID()

		decision, err := s.service.ScheduleDonation(s.ctx(), personID)
		s.Require().NoError(err)
		s.False(decision.Eligible)
		s.Require().Len(decision.Reasons, 1)
		s.Equal(eligibility.ReasonRecoveryPeriod, decision.Reasons[0].Code)

		// Nothing was committed for a blocked donor.
		_, err = s.store.Get(context.Background(), personID)
		s.Error(err)
	})

	s.Run("second booking conflicts", func() {
		personID := id.NewPersonID()
		_, err := s.service.ScheduleDonation(s.ctx(), personID)
		s.Require().NoError(err)

		_, err = s.service.ScheduleDonation(s.ctx(), personID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestCancelScheduled() {
	personID := id.NewPersonID()
	_, err := s.service.ScheduleDonation(s.ctx(), personID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.CancelScheduled(s.ctx(), personID))

	record, err := s.store.Get(context.Background(), personID)
	s.Require().NoError(err)
	s.Equal(donor.CommitmentNone, record.Commitment)

	// Nothing left to cancel.
	err = s.service.CancelScheduled(s.ctx(), personID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	err = s.service.CancelScheduled(s.ctx(), id.NewPersonID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
