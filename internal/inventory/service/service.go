// Package service is the inventory ledger: it owns the lifecycle of every
// physical blood unit from raw collection to issuance or disposal.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hemobank/internal/donor"
	"hemobank/internal/inventory"
	"hemobank/internal/inventory/holds"
	"hemobank/internal/inventory/metrics"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/events"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/requestcontext"
)

// DefaultReservationGrace bounds how long a reservation may sit without its
// request reaching issuance before the sweeper releases it.
const DefaultReservationGrace = 30 * time.Minute

type Service struct {
	units     inventory.Store
	donors    donor.Store
	holds     holds.Registry
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	grace     time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithReservationGrace(grace time.Duration) Option {
	return func(s *Service) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

func New(units inventory.Store, donors donor.Store, registry holds.Registry, opts ...Option) (*Service, error) {
	if units == nil {
		return nil, fmt.Errorf("unit store is required")
	}
	if donors == nil {
		return nil, fmt.Errorf("donor store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("hold registry is required")
	}
	s := &Service{
		units:     units,
		donors:    donors,
		holds:     registry,
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
		grace:     DefaultReservationGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns a unit for staff inspection.
func (s *Service) Get(ctx context.Context, unitID id.UnitID) (*inventory.BloodUnit, error) {
	unit, err := s.units.Get(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unit not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}
	return unit, nil
}

// RecordCollection enters a completed donation into the ledger as a
// temporary-pending unit and stamps the donor's last donation. The donor must
// hold a scheduled commitment; it moves to awaiting-processing here.
func (s *Service) RecordCollection(ctx context.Context, donorID id.PersonID, bloodType id.BloodType, component id.Component, volumeML int) (*inventory.BloodUnit, error) {
	if volumeML <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "volume must be positive")
	}
	now := requestcontext.Now(ctx)

	if err := s.donors.RecordCollection(ctx, donorID, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not registered")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "donor has no scheduled donation")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor record")
		}
	}

	unit := &inventory.BloodUnit{
		ID:          id.NewUnitID(),
		DonorID:     donorID,
		BloodType:   bloodType,
		Component:   component,
		VolumeML:    volumeML,
		CollectedAt: now,
		ExpiresAt:   now.Add(component.ShelfLife()),
		Status:      inventory.StatusTemporaryPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.units.Insert(ctx, unit); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert unit")
	}

	if s.metrics != nil {
		s.metrics.UnitsCollected.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:     events.TypeDonationRecorded,
		PersonID: donorID.String(),
		UnitID:   unit.ID.String(),
		Detail:   fmt.Sprintf("%s %dml", component, volumeML),
	})
	return unit, nil
}

// Process splits a raw unit into bank units. Volume conservation is enforced:
// the split volumes must not exceed what was collected.
func (s *Service) Process(ctx context.Context, unitID id.UnitID, splits []inventory.Split) ([]*inventory.BloodUnit, error) {
	parent, err := s.Get(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if err := validateSplits(parent, splits); err != nil {
		return nil, err
	}

	if err := s.units.MarkProcessed(ctx, unitID); err != nil {
		return nil, s.transitionError(ctx, err, unitID, "process")
	}

	now := requestcontext.Now(ctx)
	children := make([]*inventory.BloodUnit, 0, len(splits))
	for _, split := range splits {
		parentID := parent.ID
		child := &inventory.BloodUnit{
			ID:          id.NewUnitID(),
			DonorID:     parent.DonorID,
			BloodType:   parent.BloodType,
			Component:   split.Component,
			VolumeML:    split.VolumeML,
			ParentID:    &parentID,
			CollectedAt: parent.CollectedAt,
			ExpiresAt:   parent.CollectedAt.Add(split.Component.ShelfLife()),
			Status:      inventory.StatusAvailable,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.units.Insert(ctx, child); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert bank unit")
		}
		if s.metrics != nil {
			s.metrics.UnitsProcessed.Inc()
		}
		s.publisher.Publish(ctx, events.Event{
			Type:     events.TypeUnitProcessed,
			PersonID: parent.DonorID.String(),
			UnitID:   child.ID.String(),
			Actor:    requestcontext.PersonID(ctx).String(),
			Detail:   fmt.Sprintf("%s %dml from %s", split.Component, split.VolumeML, parent.ID),
		})
		children = append(children, child)
	}

	if err := s.donors.MarkProcessed(ctx, parent.DonorID, now); err != nil {
		// The bank units exist regardless; the donor counter catches up on
		// the next processing.
		s.logger.WarnContext(ctx, "failed to mark donor processed",
			"donor_id", parent.DonorID,
			"error", err.Error(),
		)
	}
	return children, nil
}

// Discard disposes of a raw unit that failed screening or handling.
func (s *Service) Discard(ctx context.Context, unitID id.UnitID, reason string) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "discard reason is required")
	}
	unit, err := s.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if err := s.units.MarkDiscarded(ctx, unitID, reason); err != nil {
		return s.transitionError(ctx, err, unitID, "discard")
	}

	// The donor's donation is concluded even though nothing entered the bank.
	if err := s.donors.UpdateCommitment(ctx, unit.DonorID, donor.CommitmentAwaitingProcessing, donor.CommitmentNone); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		s.logger.WarnContext(ctx, "failed to clear donor commitment after discard",
			"donor_id", unit.DonorID,
			"error", err.Error(),
		)
	}

	if s.metrics != nil {
		s.metrics.UnitsDiscarded.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:     events.TypeUnitDiscarded,
		PersonID: unit.DonorID.String(),
		UnitID:   unitID.String(),
		Actor:    requestcontext.PersonID(ctx).String(),
		Detail:   reason,
	})
	return nil
}

// Reserve places an exclusive hold on an available unit for a request. The
// raw sentinel errors pass through: the allocation matcher distinguishes a
// lost race (retry next candidate) from misuse.
func (s *Service) Reserve(ctx context.Context, unitID id.UnitID, requestID id.RequestID) error {
	now := requestcontext.Now(ctx)
	if err := s.units.Reserve(ctx, unitID, requestID, now); err != nil {
		return err
	}
	if err := s.holds.Place(ctx, unitID, requestID, s.grace); err != nil {
		// Reservation stands; the sweeper falls back to reserved_at.
		s.logger.WarnContext(ctx, "failed to place reservation hold",
			"unit_id", unitID,
			"error", err.Error(),
		)
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeUnitReserved,
		UnitID:    unitID.String(),
		RequestID: requestID.String(),
	})
	return nil
}

// Release returns a reserved unit to the pool. Idempotent: releasing a unit
// that is already available is a no-op.
func (s *Service) Release(ctx context.Context, unitID id.UnitID) error {
	err := s.units.ReleaseReservation(ctx, unitID)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrConflict):
		return nil
	default:
		return s.transitionError(ctx, err, unitID, "release")
	}
	if err := s.holds.Release(ctx, unitID); err != nil {
		s.logger.WarnContext(ctx, "failed to release hold", "unit_id", unitID, "error", err.Error())
	}
	if s.metrics != nil {
		s.metrics.ReservationsReleased.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:   events.TypeReservationReleased,
		UnitID: unitID.String(),
	})
	return nil
}

// Issue finalizes a reservation. A second issuance of the same unit is an
// integrity defect and is reported loudly; a reservation held by a different
// request surfaces as sentinel.ErrConflict for the caller to re-allocate.
func (s *Service) Issue(ctx context.Context, unitID id.UnitID, requestID id.RequestID) error {
	now := requestcontext.Now(ctx)
	if err := s.units.MarkIssued(ctx, unitID, requestID, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		return s.transitionError(ctx, err, unitID, "issue")
	}
	if err := s.holds.Release(ctx, unitID); err != nil {
		s.logger.WarnContext(ctx, "failed to release hold", "unit_id", unitID, "error", err.Error())
	}
	if s.metrics != nil {
		s.metrics.UnitsIssued.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeUnitIssued,
		UnitID:    unitID.String(),
		RequestID: requestID.String(),
	})
	return nil
}

// ListAvailable feeds the allocation matcher.
func (s *Service) ListAvailable(ctx context.Context, component id.Component) ([]*inventory.BloodUnit, error) {
	units, err := s.units.ListAvailable(ctx, component)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list available units")
	}
	return units, nil
}

// SweepExpired expires units past their shelf life and releases reservations
// whose grace window lapsed. Run periodically, never caller-invoked.
func (s *Service) SweepExpired(ctx context.Context) (expired, released int, err error) {
	now := requestcontext.Now(ctx)
	units, err := s.units.ListByStatus(ctx, inventory.StatusAvailable, inventory.StatusReserved)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list units for sweep")
	}

	for _, unit := range units {
		if unit.PastExpiry(now) {
			if err := s.units.MarkExpired(ctx, unit.ID); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					continue // someone issued or released it mid-sweep
				}
				s.logger.ErrorContext(ctx, "failed to expire unit",
					"unit_id", unit.ID,
					"error", err.Error(),
				)
				continue
			}
			_ = s.holds.Release(ctx, unit.ID)
			if s.metrics != nil {
				s.metrics.UnitsExpired.Inc()
			}
			s.publisher.Publish(ctx, events.Event{
				Type:   events.TypeUnitExpired,
				UnitID: unit.ID.String(),
			})
			expired++
			continue
		}

		if unit.Status != inventory.StatusReserved || unit.ReservedAt == nil {
			continue
		}
		live, holdErr := s.holds.Live(ctx, unit.ID)
		if holdErr != nil {
			s.logger.WarnContext(ctx, "failed to check hold", "unit_id", unit.ID, "error", holdErr.Error())
		}
		if live || now.Sub(*unit.ReservedAt) <= s.grace {
			continue
		}
		if err := s.Release(ctx, unit.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to release stale reservation",
				"unit_id", unit.ID,
				"error", err.Error(),
			)
			continue
		}
		released++
	}
	return expired, released, nil
}

// transitionError translates store sentinels. Invalid transitions are
// programming errors: halt the operation and log loudly.
func (s *Service) transitionError(ctx context.Context, err error, unitID id.UnitID, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "unit not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Newf(dErrors.CodeConflict, "unit state changed concurrently during %s", op)
	case errors.Is(err, sentinel.ErrInvalidTransition):
		s.logger.ErrorContext(ctx, "invalid unit transition attempted",
			"unit_id", unitID,
			"operation", op,
		)
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, "illegal unit lifecycle transition")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "unit store failure")
	}
}

func validateSplits(parent *inventory.BloodUnit, splits []inventory.Split) error {
	if len(splits) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one split is required")
	}
	total := 0
	for _, split := range splits {
		if split.VolumeML <= 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "split volume must be positive")
		}
		if _, err := id.ParseComponent(string(split.Component)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid split component")
		}
		total += split.VolumeML
	}
	if total > parent.VolumeML {
		return dErrors.Newf(dErrors.CodeInvalidInput,
			"split volumes (%dml) exceed collected volume (%dml)", total, parent.VolumeML)
	}
	return nil
}
