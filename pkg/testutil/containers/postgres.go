//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied and both driver handles open.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	DSN       string
	DB        *sql.DB
	Pool      *pgxpool.Pool
}

// Manager shares one container across every integration suite in the package
// run. Ryuk reaps the container when the test process exits.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
}

var manager = &Manager{}

func GetManager() *Manager { return manager }

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hemobank"),
		tcpostgres.WithUsername("hemobank"),
		tcpostgres.WithPassword("hemobank"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open pgx pool: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		pool.Close()
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
		Pool:      pool,
	}
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS donors (
	person_id           UUID PRIMARY KEY,
	abo_group           TEXT NOT NULL,
	rh_factor           TEXT NOT NULL,
	last_donation_at    TIMESTAMPTZ,
	commitment          TEXT NOT NULL,
	processed_donations INT NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS blood_units (
	id             UUID PRIMARY KEY,
	donor_id       UUID NOT NULL,
	abo_group      TEXT NOT NULL,
	rh_factor      TEXT NOT NULL,
	component      TEXT NOT NULL,
	volume_ml      INT NOT NULL,
	parent_id      UUID,
	collected_at   TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	reserved_for   UUID,
	reserved_at    TIMESTAMPTZ,
	issued_at      TIMESTAMPTZ,
	discard_reason TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blood_units_status_component ON blood_units (status, component);

CREATE TABLE IF NOT EXISTS requests (
	id               UUID PRIMARY KEY,
	kind             TEXT NOT NULL,
	person_id        UUID NOT NULL,
	patient_name     TEXT NOT NULL DEFAULT '',
	abo_group        TEXT NOT NULL,
	rh_factor        TEXT NOT NULL,
	component        TEXT NOT NULL,
	note             TEXT NOT NULL DEFAULT '',
	preferred_at     TIMESTAMPTZ,
	deadline         TIMESTAMPTZ,
	status           TEXT NOT NULL,
	reserved_unit_id UUID,
	issuance_id      UUID,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_person_status ON requests (person_id, status);

CREATE TABLE IF NOT EXISTS issuances (
	id         UUID PRIMARY KEY,
	request_id UUID NOT NULL,
	unit_id    UUID NOT NULL UNIQUE,
	staff_id   UUID NOT NULL,
	issued_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS domain_events (
	id          BIGSERIAL PRIMARY KEY,
	event_type  TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	person_id   TEXT,
	unit_id     TEXT,
	request_id  TEXT,
	actor       TEXT,
	detail      TEXT,
	correlation TEXT
);
`
