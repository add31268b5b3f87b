package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// PostgresStore persists blood units in PostgreSQL via pgx. Status moves are
// single conditional UPDATEs, so per-unit linearizability comes straight from
// the row lock; no advisory locking or transactions are needed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const unitColumns = `
	id, donor_id, abo_group, rh_factor, component, volume_ml, parent_id,
	collected_at, expires_at, status, reserved_for, reserved_at, issued_at,
	discard_reason, created_at, updated_at
`

func (s *PostgresStore) Get(ctx context.Context, unitID id.UnitID) (*BloodUnit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+unitColumns+` FROM blood_units WHERE id = $1`, uuid.UUID(unitID))
	unit, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return unit, nil
}

func (s *PostgresStore) Insert(ctx context.Context, unit *BloodUnit) error {
	var parentID *uuid.UUID
	if unit.ParentID != nil {
		pid := uuid.UUID(*unit.ParentID)
		parentID = &pid
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO blood_units (`+unitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`,
		uuid.UUID(unit.ID),
		uuid.UUID(unit.DonorID),
		string(unit.BloodType.ABO),
		string(unit.BloodType.Rh),
		string(unit.Component),
		unit.VolumeML,
		parentID,
		unit.CollectedAt,
		unit.ExpiresAt,
		string(unit.Status),
		nil,
		nil,
		nil,
		unit.DiscardReason,
		unit.CreatedAt,
		unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListAvailable(ctx context.Context, component id.Component) ([]*BloodUnit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM blood_units
		WHERE status = $1 AND component = $2
	`, string(StatusAvailable), string(component))
	if err != nil {
		return nil, fmt.Errorf("list available units: %w", err)
	}
	defer rows.Close()
	return collectUnits(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...UnitStatus) ([]*BloodUnit, error) {
	raw := make([]string, 0, len(statuses))
	for _, status := range statuses {
		raw = append(raw, string(status))
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM blood_units
		WHERE status = ANY($1)
	`, raw)
	if err != nil {
		return nil, fmt.Errorf("list units by status: %w", err)
	}
	defer rows.Close()
	return collectUnits(rows)
}

func (s *PostgresStore) Reserve(ctx context.Context, unitID id.UnitID, requestID id.RequestID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $2, reserved_for = $3, reserved_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
	`, uuid.UUID(unitID), string(StatusReserved), uuid.UUID(requestID), at, string(StatusAvailable))
	if err != nil {
		return fmt.Errorf("reserve unit: %w", err)
	}
	return s.casOutcome(ctx, tag.RowsAffected(), unitID, StatusReserved)
}

func (s *PostgresStore) ReleaseReservation(ctx context.Context, unitID id.UnitID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $2, reserved_for = NULL, reserved_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, uuid.UUID(unitID), string(StatusAvailable), string(StatusReserved))
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return s.casOutcome(ctx, tag.RowsAffected(), unitID, StatusAvailable)
}

func (s *PostgresStore) MarkIssued(ctx context.Context, unitID id.UnitID, requestID id.RequestID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $2, issued_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4 AND reserved_for = $5
	`, uuid.UUID(unitID), string(StatusIssued), at, string(StatusReserved), uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("mark issued: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	unit, err := s.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status == StatusReserved {
		// Reserved, but for a different request; the caller lost its hold.
		return sentinel.ErrConflict
	}
	return sentinel.ErrInvalidTransition
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, unitID id.UnitID) error {
	return s.conditionalSwap(ctx, unitID, StatusTemporaryPending, StatusProcessed, "")
}

func (s *PostgresStore) MarkDiscarded(ctx context.Context, unitID id.UnitID, reason string) error {
	return s.conditionalSwap(ctx, unitID, StatusTemporaryPending, StatusDiscarded, reason)
}

func (s *PostgresStore) MarkExpired(ctx context.Context, unitID id.UnitID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, uuid.UUID(unitID), string(StatusExpired), []string{string(StatusAvailable), string(StatusReserved)})
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return s.casOutcome(ctx, tag.RowsAffected(), unitID, StatusExpired)
}

func (s *PostgresStore) conditionalSwap(ctx context.Context, unitID id.UnitID, from, to UnitStatus, discardReason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blood_units
		SET status = $2, discard_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, uuid.UUID(unitID), string(to), discardReason, string(from))
	if err != nil {
		return fmt.Errorf("swap unit %s -> %s: %w", from, to, err)
	}
	return s.casOutcome(ctx, tag.RowsAffected(), unitID, to)
}

// casOutcome classifies a zero-row conditional UPDATE: missing unit, lost
// race, or illegal transition.
func (s *PostgresStore) casOutcome(ctx context.Context, affected int64, unitID id.UnitID, to UnitStatus) error {
	if affected > 0 {
		return nil
	}
	unit, err := s.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status == to || CanTransition(unit.Status, to) {
		return sentinel.ErrConflict
	}
	return sentinel.ErrInvalidTransition
}

func collectUnits(rows pgx.Rows) ([]*BloodUnit, error) {
	var out []*BloodUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, unit)
	}
	return out, rows.Err()
}

func scanUnit(row pgx.Row) (*BloodUnit, error) {
	var (
		unit          BloodUnit
		unitID        uuid.UUID
		donorID       uuid.UUID
		abo, rh       string
		component     string
		status        string
		parentID      *uuid.UUID
		reservedFor   *uuid.UUID
		reservedAt    *time.Time
		issuedAt      *time.Time
		discardReason *string
	)
	if err := row.Scan(
		&unitID, &donorID, &abo, &rh, &component, &unit.VolumeML, &parentID,
		&unit.CollectedAt, &unit.ExpiresAt, &status, &reservedFor, &reservedAt,
		&issuedAt, &discardReason, &unit.CreatedAt, &unit.UpdatedAt,
	); err != nil {
		return nil, err
	}
	unit.ID = id.UnitID(unitID)
	unit.DonorID = id.PersonID(donorID)
	unit.BloodType = id.BloodType{ABO: id.ABOGroup(abo), Rh: id.Rh(rh)}
	unit.Component = id.Component(component)
	unit.Status = UnitStatus(status)
	if parentID != nil {
		pid := id.UnitID(*parentID)
		unit.ParentID = &pid
	}
	if reservedFor != nil {
		rid := id.RequestID(*reservedFor)
		unit.ReservedFor = &rid
	}
	unit.ReservedAt = reservedAt
	unit.IssuedAt = issuedAt
	if discardReason != nil {
		unit.DiscardReason = *discardReason
	}
	return &unit, nil
}
