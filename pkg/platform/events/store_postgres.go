package events

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists the event log in PostgreSQL. Append-only by
// convention: nothing in this store updates or deletes rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO domain_events (event_type, occurred_at, person_id, unit_id, request_id, actor, detail, correlation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(event.Type),
		event.Timestamp,
		nullable(event.PersonID),
		nullable(event.UnitID),
		nullable(event.RequestID),
		nullable(event.Actor),
		nullable(event.Detail),
		nullable(event.Correlation),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID string) ([]Event, error) {
	query := `
		SELECT event_type, occurred_at, person_id, unit_id, request_id, actor, detail, correlation
		FROM domain_events
		WHERE request_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list events by request: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT event_type, occurred_at, person_id, unit_id, request_id, actor, detail, correlation
		FROM domain_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var (
			event     Event
			eventType string
			personID  sql.NullString
			unitID    sql.NullString
			requestID sql.NullString
			actor     sql.NullString
			detail    sql.NullString
			corr      sql.NullString
		)
		if err := rows.Scan(&eventType, &event.Timestamp, &personID, &unitID, &requestID, &actor, &detail, &corr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Type = Type(eventType)
		event.PersonID = personID.String
		event.UnitID = unitID.String
		event.RequestID = requestID.String
		event.Actor = actor.String
		event.Detail = detail.String
		event.Correlation = corr.String
		out = append(out, event)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
