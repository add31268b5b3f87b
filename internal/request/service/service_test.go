package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hemobank/internal/allocation"
	"hemobank/internal/eligibility"
	"hemobank/internal/inventory"
	"hemobank/internal/issuance"
	"hemobank/internal/request"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

type stubGate struct {
	decision eligibility.Decision
}

func (g *stubGate) CanRequestReception(context.Context, id.PersonID) (eligibility.Decision, error) {
	return g.decision, nil
}

// stubAllocator mints a fresh reserved unit per call, like real stock would.
type stubAllocator struct {
	allocated []id.UnitID
	err       error
}

func (a *stubAllocator) FindAndReserve(_ context.Context, requestID id.RequestID, _ id.BloodType, _ id.Component) (*inventory.BloodUnit, error) {
	if a.err != nil {
		return nil, a.err
	}
	unit := &inventory.BloodUnit{
		ID:          id.NewUnitID(),
		BloodType:   id.BloodType{ABO: id.ABOO, Rh: id.RhNegative},
		Component:   id.ComponentRedCells,
		Status:      inventory.StatusReserved,
		ReservedFor: &requestID,
	}
	a.allocated = append(a.allocated, unit.ID)
	return unit, nil
}

func (a *stubAllocator) last() id.UnitID {
	return a.allocated[len(a.allocated)-1]
}

type stubLedger struct {
	released []id.UnitID
	issued   []id.UnitID
	issueErr error
}

func (l *stubLedger) Release(_ context.Context, unitID id.UnitID) error {
	l.released = append(l.released, unitID)
	return nil
}

func (l *stubLedger) Issue(_ context.Context, unitID id.UnitID, _ id.RequestID) error {
	if l.issueErr != nil {
		return l.issueErr
	}
	l.issued = append(l.issued, unitID)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store     *request.InMemoryStore
	gate      *stubGate
	allocator *stubAllocator
	ledger    *stubLedger
	issuances *issuance.InMemoryStore
	svc       *Service
	ctx       context.Context
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = request.NewInMemoryStore()
	s.gate = &stubGate{decision: eligibility.Decision{Eligible: true}}
	s.allocator = &stubAllocator{}
	s.ledger = &stubLedger{}
	s.issuances = issuance.NewInMemoryStore()

	var err error
	s.svc, err = New(s.store, s.gate, s.allocator, s.ledger, s.issuances)
	s.Require().NoError(err)

	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) createRecipient() *request.Request {
	req, decision, err := s.svc.CreateRecipient(s.ctx, CreateRecipientParams{
		PersonID:  id.NewPersonID(),
		BloodType: id.BloodType{ABO: id.ABOAB, Rh: id.RhPositive},
		Component: id.ComponentRedCells,
	})
	s.Require().NoError(err)
	s.Require().True(decision.Eligible)
	s.Require().NotNil(req)
	return req
}

func (s *ServiceSuite) agreed() *request.Request {
	req := s.createRecipient()
	agreed, allocated, err := s.svc.Allocate(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().True(allocated)
	return agreed
}

func (s *ServiceSuite) TestCreateRecipient() {
	s.Run("eligible person gets a requested request", func() {
		req := s.createRecipient()
		s.Equal(request.StatusRequested, req.Status)
		s.Equal(request.KindRecipient, req.Kind)
		s.Equal(s.now, req.CreatedAt)
	})

	s.Run("blocked decision creates nothing", func() {
		s.gate.decision = eligibility.Decision{
			Eligible: false,
			Reasons:  []eligibility.Reason{{Code: eligibility.ReasonNeverDonated}},
		}
		personID := id.NewPersonID()
		req, decision, err := s.svc.CreateRecipient(s.ctx, CreateRecipientParams{
			PersonID:  personID,
			Component: id.ComponentPlasma,
		})
		s.Require().NoError(err)
		s.Nil(req)
		s.False(decision.Eligible)
		s.Len(decision.Reasons, 1)

		listed, err := s.svc.ListByPerson(s.ctx, personID)
		s.Require().NoError(err)
		s.Empty(listed)
	})

	s.Run("invalid component rejected", func() {
		_, _, err := s.svc.CreateRecipient(s.ctx, CreateRecipientParams{
			PersonID:  id.NewPersonID(),
			Component: "marrow",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestCreatePartner() {
	s.Run("requires a patient name", func() {
		_, err := s.svc.CreatePartner(s.ctx, CreatePartnerParams{
			PartnerID: id.NewPersonID(),
			Component: id.ComponentPlatelets,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("bypasses eligibility but not the one-active-request rule", func() {
		s.gate.decision = eligibility.Decision{
			Eligible: false,
			Reasons:  []eligibility.Reason{{Code: eligibility.ReasonNeverDonated}},
		}
		partnerID := id.NewPersonID()
		first, err := s.svc.CreatePartner(s.ctx, CreatePartnerParams{
			PartnerID:   partnerID,
			PatientName: "J. Doe",
			BloodType:   id.BloodType{ABO: id.ABOA, Rh: id.RhPositive},
			Component:   id.ComponentPlasma,
		})
		s.Require().NoError(err)
		s.Equal(request.KindPartner, first.Kind)
		s.Equal("J. Doe", first.PatientName)

		_, err = s.svc.CreatePartner(s.ctx, CreatePartnerParams{
			PartnerID:   partnerID,
			PatientName: "J. Doe",
			Component:   id.ComponentPlasma,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestAllocate() {
	s.Run("reserves a unit and agrees", func() {
		req := s.agreed()
		s.Equal(request.StatusAgreed, req.Status)
		s.Require().NotNil(req.ReservedUnitID)
		s.Equal(s.allocator.last(), *req.ReservedUnitID)
	})

	s.Run("none available leaves the request open", func() {
		req := s.createRecipient()
		s.allocator.err = allocation.ErrNoneAvailable

		got, allocated, err := s.svc.Allocate(s.ctx, req.ID)
		s.Require().NoError(err)
		s.False(allocated)
		s.Equal(request.StatusRequested, got.Status)

		// Retry succeeds once stock shows up.
		s.allocator.err = nil
		got, allocated, err = s.svc.Allocate(s.ctx, req.ID)
		s.Require().NoError(err)
		s.True(allocated)
		s.Equal(request.StatusAgreed, got.Status)
	})

	s.Run("terminal request cannot allocate", func() {
		req := s.createRecipient()
		s.Require().NoError(s.svc.Reject(s.ctx, req.ID))
		_, _, err := s.svc.Allocate(s.ctx, req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestIssue() {
	staffID := id.NewPersonID()

	s.Run("agreed request with reservation issues once", func() {
		req := s.agreed()
		record, err := s.svc.Issue(s.ctx, req.ID, staffID)
		s.Require().NoError(err)
		s.Equal(req.ID, record.RequestID)
		s.Equal(*req.ReservedUnitID, record.UnitID)
		s.Equal(staffID, record.StaffID)
		s.Equal(s.now, record.IssuedAt)
		s.Equal([]id.UnitID{record.UnitID}, s.ledger.issued)

		issued, err := s.svc.Get(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(request.StatusIssued, issued.Status)
		s.Require().NotNil(issued.IssuanceID)
		s.Equal(record.ID, *issued.IssuanceID)
	})

	s.Run("issuing an issued request is a defect", func() {
		req := s.agreed()
		_, err := s.svc.Issue(s.ctx, req.ID, staffID)
		s.Require().NoError(err)

		_, err = s.svc.Issue(s.ctx, req.ID, staffID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("requested request is not issuable yet", func() {
		req := s.createRecipient()
		_, err := s.svc.Issue(s.ctx, req.ID, staffID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("cancelled request cannot be issued", func() {
		req := s.createRecipient()
		s.Require().NoError(s.svc.Cancel(s.ctx, req.ID))

		_, err := s.svc.Issue(s.ctx, req.ID, staffID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("agreed without reservation reserves first", func() {
		req := s.createRecipient()
		_, err := s.svc.Agree(s.ctx, req.ID)
		s.Require().NoError(err)

		record, err := s.svc.Issue(s.ctx, req.ID, staffID)
		s.Require().NoError(err)
		s.Equal(s.allocator.last(), record.UnitID)
	})

	s.Run("duplicate unit in the log halts issuance", func() {
		req := s.agreed()
		s.Require().NoError(s.issuances.Append(s.ctx, &issuance.Record{
			ID:        id.NewIssuanceID(),
			RequestID: id.NewRequestID(),
			UnitID:    *req.ReservedUnitID,
			StaffID:   staffID,
			IssuedAt:  s.now,
		}))

		_, err := s.svc.Issue(s.ctx, req.ID, staffID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) TestCancel() {
	s.Run("releases the reserved unit", func() {
		req := s.agreed()
		s.Require().NoError(s.svc.Cancel(s.ctx, req.ID))

		cancelled, err := s.svc.Get(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(request.StatusCancelled, cancelled.Status)
		s.Nil(cancelled.ReservedUnitID)
		s.Equal([]id.UnitID{*req.ReservedUnitID}, s.ledger.released)
	})

	s.Run("idempotent", func() {
		req := s.createRecipient()
		s.Require().NoError(s.svc.Cancel(s.ctx, req.ID))
		s.Require().NoError(s.svc.Cancel(s.ctx, req.ID))
	})

	s.Run("issued request cannot be cancelled", func() {
		req := s.agreed()
		_, err := s.svc.Issue(s.ctx, req.ID, id.NewPersonID())
		s.Require().NoError(err)

		err = s.svc.Cancel(s.ctx, req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) TestReject() {
	s.Run("only from requested", func() {
		req := s.createRecipient()
		s.Require().NoError(s.svc.Reject(s.ctx, req.ID))

		rejected, err := s.svc.Get(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(request.StatusRejected, rejected.Status)
	})

	s.Run("agreed request cannot be rejected", func() {
		req := s.agreed()
		err := s.svc.Reject(s.ctx, req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}
