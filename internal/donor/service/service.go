// Package service manages donor registration and donation scheduling.
// Collection presumes a scheduled commitment, so the appointment step lives
// here: gate first, then commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hemobank/internal/donor"
	"hemobank/internal/eligibility"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/requestcontext"
)

// DonationGate is the donation-side slice of the eligibility rules.
type DonationGate interface {
	CanDonate(ctx context.Context, personID id.PersonID) (eligibility.Decision, error)
}

type Service struct {
	donors donor.Store
	gate   DonationGate
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(donors donor.Store, gate DonationGate, opts ...Option) (*Service, error) {
	if donors == nil {
		return nil, fmt.Errorf("donor store is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("donation gate is required")
	}
	s := &Service{donors: donors, gate: gate, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates the donor record for a person. The blood type may be
// unknown until the first typed collection.
func (s *Service) Register(ctx context.Context, personID id.PersonID, bloodType id.BloodType) (*donor.Record, error) {
	if personID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "person id is required")
	}
	now := requestcontext.Now(ctx)
	record := &donor.Record{
		PersonID:   personID,
		BloodType:  bloodType,
		Commitment: donor.CommitmentNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.donors.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "donor already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register donor")
	}
	return record, nil
}

// Get returns the donor record for a person.
func (s *Service) Get(ctx context.Context, personID id.PersonID) (*donor.Record, error) {
	record, err := s.donors.Get(ctx, personID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor record")
	}
	return record, nil
}

// ScheduleDonation books the donor's next donation. A blocked decision is a
// valid outcome, not an error; when eligible the commitment moves
// none -> scheduled.
func (s *Service) ScheduleDonation(ctx context.Context, personID id.PersonID) (eligibility.Decision, error) {
	decision, err := s.gate.CanDonate(ctx, personID)
	if err != nil {
		return eligibility.Decision{}, err
	}
	if !decision.Eligible {
		return decision, nil
	}

	err = s.donors.UpdateCommitment(ctx, personID, donor.CommitmentNone, donor.CommitmentScheduled)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		// First contact: a fresh donor schedules before registering a type.
		if _, regErr := s.Register(ctx, personID, id.BloodType{ABO: id.ABOUnknown, Rh: id.RhUnknown}); regErr != nil {
			return eligibility.Decision{}, regErr
		}
		if err := s.donors.UpdateCommitment(ctx, personID, donor.CommitmentNone, donor.CommitmentScheduled); err != nil {
			return eligibility.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule donation")
		}
	case errors.Is(err, sentinel.ErrConflict):
		return eligibility.Decision{}, dErrors.New(dErrors.CodeConflict, "donor already has an active commitment")
	default:
		return eligibility.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule donation")
	}

	s.logger.InfoContext(ctx, "donation scheduled", "person_id", personID)
	return decision, nil
}

// CancelScheduled returns a scheduled commitment to none. Only an uncollected
// appointment can be cancelled; a collected donation concludes via processing
// or discard.
func (s *Service) CancelScheduled(ctx context.Context, personID id.PersonID) error {
	err := s.donors.UpdateCommitment(ctx, personID, donor.CommitmentScheduled, donor.CommitmentNone)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donor not registered")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "donor has no scheduled donation")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel scheduled donation")
	}
}
