//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

// PostgresContainer wraps a testcontainers Postgres instance with the notice
// schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS notices (
    notice_no               TEXT PRIMARY KEY,
    id_no                   TEXT NOT NULL,
    id_type                 TEXT NOT NULL,
    vehicle_no              TEXT NOT NULL DEFAULT '',
    prev_processing_stage   TEXT,
    last_processing_stage   TEXT NOT NULL DEFAULT '',
    next_processing_stage   TEXT,
    prev_processing_date    TIMESTAMPTZ,
    last_processing_date    TIMESTAMPTZ,
    next_processing_date    TIMESTAMPTZ,
    composition_amount      NUMERIC(12,2) NOT NULL DEFAULT 0,
    administration_fee      NUMERIC(12,2),
    amount_payable          NUMERIC(12,2) NOT NULL DEFAULT 0,
    suspension_type         TEXT,
    epr_reason_of_suspension TEXT,
    epr_date_of_suspension  TIMESTAMPTZ,
    crs_reason_of_suspension TEXT,
    crs_date_of_suspension  TIMESTAMPTZ,
    due_date_of_revival     TIMESTAMPTZ,
    message_code            TEXT,
    payment_accepted        BOOLEAN NOT NULL DEFAULT FALSE,
    is_sync                 TEXT NOT NULL DEFAULT 'Y',
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notices_next_stage
    ON notices (next_processing_stage, next_processing_date);
CREATE INDEX IF NOT EXISTS idx_notices_dirty
    ON notices (updated_at) WHERE is_sync = 'N';

CREATE TABLE IF NOT EXISTS suspension_history (
    notice_no            TEXT NOT NULL,
    seq                  INTEGER NOT NULL,
    suspension_type      TEXT NOT NULL,
    reason_of_suspension TEXT NOT NULL,
    date_of_suspension   TIMESTAMPTZ NOT NULL,
    due_date_of_revival  TIMESTAMPTZ NOT NULL,
    date_of_revival      TIMESTAMPTZ,
    authorizer           TEXT NOT NULL,
    source_channel       TEXT NOT NULL,
    case_ref             TEXT NOT NULL DEFAULT '',
    remarks              TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (notice_no, seq)
);

CREATE TABLE IF NOT EXISTS reminder_tracking (
    notice_no          TEXT NOT NULL,
    date_of_processing TIMESTAMPTZ NOT NULL,
    processing_stage   TEXT NOT NULL,
    letter_date        TIMESTAMPTZ NOT NULL,
    payment_due_date   TIMESTAMPTZ NOT NULL,
    recipient_id_no    TEXT NOT NULL DEFAULT '',
    recipient_name     TEXT NOT NULL DEFAULT '',
    recipient_address  TEXT NOT NULL DEFAULT '',
    reminder_flag      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (notice_no, date_of_processing)
);

CREATE TABLE IF NOT EXISTS demand_tracking (
    notice_no          TEXT NOT NULL,
    date_of_processing TIMESTAMPTZ NOT NULL,
    processing_stage   TEXT NOT NULL,
    letter_date        TIMESTAMPTZ NOT NULL,
    payment_due_date   TIMESTAMPTZ NOT NULL,
    recipient_id_no    TEXT NOT NULL DEFAULT '',
    recipient_name     TEXT NOT NULL DEFAULT '',
    recipient_address  TEXT NOT NULL DEFAULT '',
    reminder_flag      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (notice_no, date_of_processing)
);

CREATE TABLE IF NOT EXISTS parameters (
    parameter_id TEXT NOT NULL,
    code         TEXT NOT NULL,
    value        NUMERIC(12,2) NOT NULL,
    PRIMARY KEY (parameter_id, code)
);

CREATE TABLE IF NOT EXISTS stage_map (
    current_stage TEXT PRIMARY KEY,
    next_stage    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS suspension_reasons (
    suspension_type      TEXT NOT NULL,
    reason_code          TEXT NOT NULL,
    description          TEXT NOT NULL DEFAULT '',
    default_revival_days INTEGER NOT NULL DEFAULT 0,
    allowed_sources      TEXT NOT NULL DEFAULT '',
    auto_reapply         BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (suspension_type, reason_code)
);
`

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("noticeflow"),
		tcpostgres.WithUsername("noticeflow"),
		tcpostgres.WithPassword("noticeflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
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

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// Truncate empties the mutable tables between tests.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx,
		`TRUNCATE notices, suspension_history, reminder_tracking, demand_tracking`)
	return err
}
