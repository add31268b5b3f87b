package request

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// PostgresStore persists requests in PostgreSQL. Pure I/O — lifecycle policy
// lives in the service layer; only the status compare-and-set lives here
// because it must be atomic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, kind, person_id, patient_name, abo_group, rh_factor, component, note,
	preferred_at, deadline, status, reserved_unit_id, issuance_id, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, requestID id.RequestID) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	request, err := scanRequest(s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return request, nil
}

func (s *PostgresStore) Create(ctx context.Context, request *Request) error {
	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(request.ID),
		string(request.Kind),
		uuid.UUID(request.PersonID),
		request.PatientName,
		string(request.BloodType.ABO),
		string(request.BloodType.Rh),
		string(request.Component),
		request.Note,
		request.PreferredAt,
		request.Deadline,
		string(request.Status),
		nullableUnit(request.ReservedUnitID),
		nullableIssuance(request.IssuanceID),
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID id.PersonID) ([]*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE person_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(personID))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HasActive(ctx context.Context, personID id.PersonID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE person_id = $1 AND status IN ($2, $3)
		)
	`
	var active bool
	err := s.db.QueryRowContext(ctx, query,
		uuid.UUID(personID), string(StatusRequested), string(StatusAgreed),
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("check active request: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) Transition(ctx context.Context, requestID id.RequestID, from, to Status) error {
	if !CanTransition(from, to) {
		return sentinel.ErrInvalidTransition
	}
	query := `
		UPDATE requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(requestID), string(from), string(to))
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	return s.casOutcome(ctx, res, requestID, to)
}

func (s *PostgresStore) AttachReservation(ctx context.Context, requestID id.RequestID, unitID id.UnitID) error {
	query := `
		UPDATE requests
		SET reserved_unit_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, query, uuid.UUID(requestID), uuid.UUID(unitID))
}

func (s *PostgresStore) DetachReservation(ctx context.Context, requestID id.RequestID) error {
	query := `
		UPDATE requests
		SET reserved_unit_id = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, query, uuid.UUID(requestID))
}

func (s *PostgresStore) MarkIssued(ctx context.Context, requestID id.RequestID, from Status, issuanceID id.IssuanceID, at time.Time) error {
	if !CanTransition(from, StatusIssued) {
		return sentinel.ErrInvalidTransition
	}
	query := `
		UPDATE requests
		SET status = $3, issuance_id = $4, updated_at = $5
		WHERE id = $1 AND status = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(requestID), string(from), string(StatusIssued), uuid.UUID(issuanceID), at,
	)
	if err != nil {
		return fmt.Errorf("mark request issued: %w", err)
	}
	return s.casOutcome(ctx, res, requestID, StatusIssued)
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// casOutcome classifies a zero-row conditional UPDATE: missing row, a race the
// step could have survived, or an illegal step from the row's actual status.
func (s *PostgresStore) casOutcome(ctx context.Context, res sql.Result, requestID id.RequestID, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var current string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM requests WHERE id = $1`, uuid.UUID(requestID),
	).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("check request status: %w", err)
	}
	if Status(current) == to || CanTransition(Status(current), to) {
		return sentinel.ErrConflict
	}
	return sentinel.ErrInvalidTransition
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRequest(row scannable) (*Request, error) {
	var (
		request      Request
		requestID    uuid.UUID
		personID     uuid.UUID
		kind         string
		abo, rh      string
		component    string
		status       string
		preferredAt  sql.NullTime
		deadline     sql.NullTime
		reservedUnit uuid.NullUUID
		issuanceID   uuid.NullUUID
	)
	err := row.Scan(
		&requestID, &kind, &personID, &request.PatientName, &abo, &rh, &component,
		&request.Note, &preferredAt, &deadline, &status, &reservedUnit, &issuanceID,
		&request.CreatedAt, &request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	request.ID = id.RequestID(requestID)
	request.Kind = Kind(kind)
	request.PersonID = id.PersonID(personID)
	request.BloodType = id.BloodType{ABO: id.ABOGroup(abo), Rh: id.Rh(rh)}
	request.Component = id.Component(component)
	request.Status = Status(status)
	if preferredAt.Valid {
		request.PreferredAt = &preferredAt.Time
	}
	if deadline.Valid {
		request.Deadline = &deadline.Time
	}
	if reservedUnit.Valid {
		unitID := id.UnitID(reservedUnit.UUID)
		request.ReservedUnitID = &unitID
	}
	if issuanceID.Valid {
		issID := id.IssuanceID(issuanceID.UUID)
		request.IssuanceID = &issID
	}
	return &request, nil
}

func nullableUnit(unitID *id.UnitID) any {
	if unitID == nil {
		return nil
	}
	return uuid.UUID(*unitID)
}

func nullableIssuance(issuanceID *id.IssuanceID) any {
	if issuanceID == nil {
		return nil
	}
	return uuid.UUID(*issuanceID)
}
