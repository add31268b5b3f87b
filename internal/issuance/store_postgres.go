package issuance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// PostgresStore persists issuance records. The UNIQUE constraint on unit_id
// enforces at-most-once issuance at the database level.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Append(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO issuances (id, request_id, unit_id, staff_id, issued_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.RequestID),
		uuid.UUID(record.UnitID),
		uuid.UUID(record.StaffID),
		record.IssuedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append issuance: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByRequest(ctx context.Context, requestID id.RequestID) (*Record, error) {
	return s.get(ctx, `request_id`, uuid.UUID(requestID))
}

func (s *PostgresStore) GetByUnit(ctx context.Context, unitID id.UnitID) (*Record, error) {
	return s.get(ctx, `unit_id`, uuid.UUID(unitID))
}

func (s *PostgresStore) get(ctx context.Context, column string, value uuid.UUID) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT id, request_id, unit_id, staff_id, issued_at
		FROM issuances
		WHERE %s = $1
	`, column)
	var record Record
	var recordID, requestID, unitID, staffID uuid.UUID
	err := s.db.QueryRowContext(ctx, query, value).
		Scan(&recordID, &requestID, &unitID, &staffID, &record.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get issuance: %w", err)
	}
	record.ID = id.IssuanceID(recordID)
	record.RequestID = id.RequestID(requestID)
	record.UnitID = id.UnitID(unitID)
	record.StaffID = id.PersonID(staffID)
	return &record, nil
}
