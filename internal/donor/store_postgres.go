package donor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// PostgresStore persists donor records in PostgreSQL. Pure I/O — the
// eligibility rules live in the service layer; only the commitment
// compare-and-set lives here because it must be atomic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, personID id.PersonID) (*Record, error) {
	query := `
		SELECT person_id, abo_group, rh_factor, last_donation_at, commitment, processed_donations, created_at, updated_at
		FROM donors
		WHERE person_id = $1
	`
	record, err := scanDonor(s.db.QueryRowContext(ctx, query, uuid.UUID(personID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get donor: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO donors (person_id, abo_group, rh_factor, last_donation_at, commitment, processed_donations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (person_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.PersonID),
		string(record.BloodType.ABO),
		string(record.BloodType.Rh),
		record.LastDonationAt,
		string(record.Commitment),
		record.ProcessedDonations,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create donor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create donor: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// UpdateCommitment uses a conditional UPDATE so concurrent staff sessions
// cannot double-book a donor; the loser sees zero affected rows.
func (s *PostgresStore) UpdateCommitment(ctx context.Context, personID id.PersonID, from, to Commitment) error {
	query := `
		UPDATE donors
		SET commitment = $3, updated_at = NOW()
		WHERE person_id = $1 AND commitment = $2
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(personID), string(from), string(to))
	if err != nil {
		return fmt.Errorf("update donor commitment: %w", err)
	}
	return s.casOutcome(ctx, res, personID)
}

func (s *PostgresStore) RecordCollection(ctx context.Context, personID id.PersonID, at time.Time) error {
	query := `
		UPDATE donors
		SET commitment = $2, last_donation_at = $3, updated_at = $3
		WHERE person_id = $1 AND commitment = $4
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(personID),
		string(CommitmentAwaitingProcessing),
		at,
		string(CommitmentScheduled),
	)
	if err != nil {
		return fmt.Errorf("record collection: %w", err)
	}
	return s.casOutcome(ctx, res, personID)
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, personID id.PersonID, at time.Time) error {
	query := `
		UPDATE donors
		SET processed_donations = processed_donations + 1,
		    commitment = CASE WHEN commitment = $2 THEN $3 ELSE commitment END,
		    updated_at = $4
		WHERE person_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(personID),
		string(CommitmentAwaitingProcessing),
		string(CommitmentNone),
		at,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// casOutcome distinguishes a lost compare-and-set from a missing donor.
func (s *PostgresStore) casOutcome(ctx context.Context, res sql.Result, personID id.PersonID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM donors WHERE person_id = $1)`, uuid.UUID(personID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check donor exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func scanDonor(row *sql.Row) (*Record, error) {
	var (
		record   Record
		personID uuid.UUID
		abo, rh  string
		commit   string
		lastAt   sql.NullTime
	)
	if err := row.Scan(&personID, &abo, &rh, &lastAt, &commit, &record.ProcessedDonations, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	record.PersonID = id.PersonID(personID)
	record.BloodType = id.BloodType{ABO: id.ABOGroup(abo), Rh: id.Rh(rh)}
	record.Commitment = Commitment(commit)
	if lastAt.Valid {
		record.LastDonationAt = &lastAt.Time
	}
	return &record, nil
}
