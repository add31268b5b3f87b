// Package service drives the request lifecycle from creation through issuance
// or a terminal refusal. It is the sole producer of issuance records.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hemobank/internal/allocation"
	"hemobank/internal/eligibility"
	"hemobank/internal/inventory"
	"hemobank/internal/issuance"
	"hemobank/internal/request"
	"hemobank/internal/request/metrics"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/events"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/requestcontext"
)

// EligibilityGate is the reception-side slice of the eligibility rules.
type EligibilityGate interface {
	CanRequestReception(ctx context.Context, personID id.PersonID) (eligibility.Decision, error)
}

// Allocator finds and reserves a compatible unit for a request.
type Allocator interface {
	FindAndReserve(ctx context.Context, requestID id.RequestID, recipient id.BloodType, component id.Component) (*inventory.BloodUnit, error)
}

// Ledger is the slice of the inventory service the request lifecycle needs.
type Ledger interface {
	Release(ctx context.Context, unitID id.UnitID) error
	Issue(ctx context.Context, unitID id.UnitID, requestID id.RequestID) error
}

type Service struct {
	store     request.Store
	gate      EligibilityGate
	allocator Allocator
	ledger    Ledger
	issuances issuance.Store
	publisher events.Publisher
	metrics   *metrics.RequestMetrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.RequestMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store request.Store, gate EligibilityGate, allocator Allocator, ledger Ledger, issuances issuance.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("eligibility gate is required")
	}
	if allocator == nil {
		return nil, fmt.Errorf("allocator is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if issuances == nil {
		return nil, fmt.Errorf("issuance store is required")
	}
	s := &Service{
		store:     store,
		gate:      gate,
		allocator: allocator,
		ledger:    ledger,
		issuances: issuances,
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type CreateRecipientParams struct {
	PersonID    id.PersonID
	BloodType   id.BloodType
	Component   id.Component
	PreferredAt *time.Time
	Note        string
}

type CreatePartnerParams struct {
	PartnerID   id.PersonID
	PatientName string
	BloodType   id.BloodType
	Component   id.Component
	Deadline    *time.Time
	Note        string
}

// CreateRecipient opens a request for the person themselves. A blocked
// eligibility decision is a valid outcome, not an error: the request is not
// created and the decision carries every blocking reason.
func (s *Service) CreateRecipient(ctx context.Context, params CreateRecipientParams) (*request.Request, eligibility.Decision, error) {
	if params.PersonID.IsNil() {
		return nil, eligibility.Decision{}, dErrors.New(dErrors.CodeInvalidInput, "person id is required")
	}
	if _, err := id.ParseComponent(string(params.Component)); err != nil {
		return nil, eligibility.Decision{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid component")
	}

	decision, err := s.gate.CanRequestReception(ctx, params.PersonID)
	if err != nil {
		return nil, eligibility.Decision{}, err
	}
	if !decision.Eligible {
		return nil, decision, nil
	}

	req := s.newRequest(ctx, request.KindRecipient, params.PersonID, params.BloodType, params.Component)
	req.PreferredAt = params.PreferredAt
	req.Note = params.Note
	if err := s.create(ctx, req); err != nil {
		return nil, eligibility.Decision{}, err
	}
	return req, decision, nil
}

// CreatePartner opens a request on behalf of an external patient. Eligibility
// never applies; the one-active-request rule still binds the requesting
// partner.
func (s *Service) CreatePartner(ctx context.Context, params CreatePartnerParams) (*request.Request, error) {
	if params.PartnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if params.PatientName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "patient name is required")
	}
	if _, err := id.ParseComponent(string(params.Component)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid component")
	}

	active, err := s.store.HasActive(ctx, params.PartnerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active requests")
	}
	if active {
		return nil, dErrors.New(dErrors.CodeConflict, "requester already has an active request")
	}

	req := s.newRequest(ctx, request.KindPartner, params.PartnerID, params.BloodType, params.Component)
	req.PatientName = params.PatientName
	req.Deadline = params.Deadline
	req.Note = params.Note
	if err := s.create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns a request.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*request.Request, error) {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
	}
	return req, nil
}

// ListByPerson returns a person's requests, newest first.
func (s *Service) ListByPerson(ctx context.Context, personID id.PersonID) ([]*request.Request, error) {
	out, err := s.store.ListByPerson(ctx, personID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return out, nil
}

// Allocate tries to reserve a compatible unit and move the request to Agreed.
// Exhausted inventory leaves the request Requested and reports allocated=false;
// a later attempt may succeed.
func (s *Service) Allocate(ctx context.Context, requestID id.RequestID) (*request.Request, bool, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, false, err
	}
	switch req.Status {
	case request.StatusRequested:
	case request.StatusAgreed:
		return req, req.ReservedUnitID != nil, nil
	default:
		return nil, false, dErrors.Newf(dErrors.CodeConflict, "request is %s", req.Status)
	}

	unit, err := s.allocator.FindAndReserve(ctx, req.ID, req.BloodType, req.Component)
	if err != nil {
		if errors.Is(err, allocation.ErrNoneAvailable) {
			return req, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "allocation failed")
	}

	if err := s.store.AttachReservation(ctx, req.ID, unit.ID); err != nil {
		s.undoReservation(ctx, unit.ID)
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach reservation")
	}
	if err := s.store.Transition(ctx, req.ID, request.StatusRequested, request.StatusAgreed); err != nil {
		// The request moved under us (likely cancelled); give the unit back.
		s.undoReservation(ctx, unit.ID)
		_ = s.store.DetachReservation(ctx, req.ID)
		return nil, false, s.transitionError(ctx, err, req.ID, "allocate")
	}

	if s.metrics != nil {
		s.metrics.Agreed.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeRequestAgreed,
		PersonID:  req.PersonID.String(),
		RequestID: req.ID.String(),
		UnitID:    unit.ID.String(),
	})
	updated, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// Agree commits to a request without reserving a unit yet. Staff use this to
// promise fulfillment ahead of stock arriving.
func (s *Service) Agree(ctx context.Context, requestID id.RequestID) (*request.Request, error) {
	if err := s.store.Transition(ctx, requestID, request.StatusRequested, request.StatusAgreed); err != nil {
		return nil, s.transitionError(ctx, err, requestID, "agree")
	}
	if s.metrics != nil {
		s.metrics.Agreed.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeRequestAgreed,
		RequestID: requestID.String(),
		Actor:     requestcontext.PersonID(ctx).String(),
	})
	return s.Get(ctx, requestID)
}

// Issue fulfills an agreed request: reserves a unit if none is held, finalizes
// the unit, and writes the single immutable issuance record.
func (s *Service) Issue(ctx context.Context, requestID id.RequestID, staffID id.PersonID) (*issuance.Record, error) {
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "staff id is required")
	}
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusAgreed {
		if req.Status.Terminal() {
			return nil, dErrors.Newf(dErrors.CodeInvalidTransition, "cannot issue a %s request", req.Status)
		}
		// Not issuable yet: the request has to be agreed first.
		return nil, dErrors.Newf(dErrors.CodeConflict, "request is %s", req.Status)
	}

	unitID, err := s.ensureReserved(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Issue(ctx, unitID, req.ID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Our reservation was lost (swept or re-reserved). Re-allocate once.
			_ = s.store.DetachReservation(ctx, req.ID)
			unitID, err = s.reserveFresh(ctx, req)
			if err != nil {
				return nil, err
			}
			err = s.ledger.Issue(ctx, unitID, req.ID)
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue unit")
		}
	}

	now := requestcontext.Now(ctx)
	record := &issuance.Record{
		ID:        id.NewIssuanceID(),
		RequestID: req.ID,
		UnitID:    unitID,
		StaffID:   staffID,
		IssuedAt:  now,
	}
	if err := s.issuances.Append(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// The unit already appears in the log: the ledger and the log
			// disagree, which should be impossible. Halt and report.
			s.logger.ErrorContext(ctx, "duplicate issuance detected",
				"unit_id", unitID,
				"request_id", req.ID,
			)
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "unit already issued")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append issuance record")
	}

	if err := s.store.MarkIssued(ctx, req.ID, request.StatusAgreed, record.ID, now); err != nil {
		return nil, s.transitionError(ctx, err, req.ID, "issue")
	}

	if s.metrics != nil {
		s.metrics.Issued.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeRequestIssued,
		PersonID:  req.PersonID.String(),
		RequestID: req.ID.String(),
		UnitID:    unitID.String(),
		Actor:     staffID.String(),
	})
	return record, nil
}

// Cancel withdraws a request and releases any reserved unit. Idempotent:
// cancelling a cancelled request is a no-op.
func (s *Service) Cancel(ctx context.Context, requestID id.RequestID) error {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	switch req.Status {
	case request.StatusCancelled:
		return nil
	case request.StatusRequested, request.StatusAgreed:
	default:
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot cancel a %s request", req.Status)
	}

	if err := s.store.Transition(ctx, requestID, req.Status, request.StatusCancelled); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Re-read; a concurrent cancel makes this a no-op.
			current, getErr := s.Get(ctx, requestID)
			if getErr == nil && current.Status == request.StatusCancelled {
				return nil
			}
		}
		return s.transitionError(ctx, err, requestID, "cancel")
	}

	if req.ReservedUnitID != nil {
		if err := s.ledger.Release(ctx, *req.ReservedUnitID); err != nil {
			s.logger.WarnContext(ctx, "failed to release unit on cancel",
				"unit_id", req.ReservedUnitID,
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		_ = s.store.DetachReservation(ctx, requestID)
	}

	if s.metrics != nil {
		s.metrics.Cancelled.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeRequestCancelled,
		PersonID:  req.PersonID.String(),
		RequestID: requestID.String(),
		Actor:     requestcontext.PersonID(ctx).String(),
	})
	return nil
}

// Reject refuses a request that was never agreed.
func (s *Service) Reject(ctx context.Context, requestID id.RequestID) error {
	if err := s.store.Transition(ctx, requestID, request.StatusRequested, request.StatusRejected); err != nil {
		return s.transitionError(ctx, err, requestID, "reject")
	}
	if s.metrics != nil {
		s.metrics.Rejected.Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeRequestRejected,
		RequestID: requestID.String(),
		Actor:     requestcontext.PersonID(ctx).String(),
	})
	return nil
}

func (s *Service) newRequest(ctx context.Context, kind request.Kind, personID id.PersonID, bloodType id.BloodType, component id.Component) *request.Request {
	now := requestcontext.Now(ctx)
	return &request.Request{
		ID:        id.NewRequestID(),
		Kind:      kind,
		PersonID:  personID,
		BloodType: bloodType,
		Component: component,
		Status:    request.StatusRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) create(ctx context.Context, req *request.Request) error {
	if err := s.store.Create(ctx, req); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}
	if s.metrics != nil {
		s.metrics.Created.WithLabelValues(string(req.Kind)).Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeRequestCreated,
		PersonID:  req.PersonID.String(),
		RequestID: req.ID.String(),
		Detail:    fmt.Sprintf("%s %s %s", req.Kind, req.BloodType, req.Component),
	})
	return nil
}

// ensureReserved returns the unit held for the request, reserving one when the
// request was agreed without stock.
func (s *Service) ensureReserved(ctx context.Context, req *request.Request) (id.UnitID, error) {
	if req.ReservedUnitID != nil {
		return *req.ReservedUnitID, nil
	}
	return s.reserveFresh(ctx, req)
}

func (s *Service) reserveFresh(ctx context.Context, req *request.Request) (id.UnitID, error) {
	unit, err := s.allocator.FindAndReserve(ctx, req.ID, req.BloodType, req.Component)
	if err != nil {
		if errors.Is(err, allocation.ErrNoneAvailable) {
			return id.UnitID{}, dErrors.New(dErrors.CodeConflict, "no compatible inventory to issue")
		}
		return id.UnitID{}, dErrors.Wrap(err, dErrors.CodeInternal, "allocation failed")
	}
	if err := s.store.AttachReservation(ctx, req.ID, unit.ID); err != nil {
		s.undoReservation(ctx, unit.ID)
		return id.UnitID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach reservation")
	}
	return unit.ID, nil
}

func (s *Service) undoReservation(ctx context.Context, unitID id.UnitID) {
	if err := s.ledger.Release(ctx, unitID); err != nil {
		s.logger.WarnContext(ctx, "failed to release unit after aborted allocation",
			"unit_id", unitID,
			"error", err.Error(),
		)
	}
}

// transitionError translates store sentinels. Invalid transitions are
// programming errors: halt the operation and log loudly.
func (s *Service) transitionError(ctx context.Context, err error, requestID id.RequestID, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Newf(dErrors.CodeConflict, "request state changed concurrently during %s", op)
	case errors.Is(err, sentinel.ErrInvalidTransition):
		s.logger.ErrorContext(ctx, "invalid request transition attempted",
			"request_id", requestID,
			"operation", op,
		)
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, "illegal request lifecycle transition")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "request store failure")
	}
}
