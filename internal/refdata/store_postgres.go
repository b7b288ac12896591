package refdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"noticeflow/internal/notice"
)

// PostgresLoader reads the parameter, stage-map and suspension-reason tables
// into a Snapshot. Snapshots are cached for ttl; reference data changes only
// through out-of-band administration, so a short cache is safe and keeps batch
// runs from hammering the tables.
type PostgresLoader struct {
	db  *sql.DB
	ttl time.Duration

	mu       sync.Mutex
	cached   *Snapshot
	cachedAt time.Time
}

func NewPostgresLoader(db *sql.DB, ttl time.Duration) *PostgresLoader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PostgresLoader{db: db, ttl: ttl}
}

func (l *PostgresLoader) Snapshot(ctx context.Context) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && time.Since(l.cachedAt) < l.ttl {
		return l.cached, nil
	}

	b := NewBuilder()
	if err := l.loadParameters(ctx, b); err != nil {
		return nil, err
	}
	if err := l.loadStageMap(ctx, b); err != nil {
		return nil, err
	}
	if err := l.loadReasons(ctx, b); err != nil {
		return nil, err
	}

	l.cached = b.Build()
	l.cachedAt = time.Now()
	return l.cached, nil
}

func (l *PostgresLoader) loadParameters(ctx context.Context, b *Builder) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT parameter_id, code, value FROM parameters`)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			code  string
			value decimal.Decimal
		)
		if err := rows.Scan(&id, &code, &value); err != nil {
			return fmt.Errorf("scan parameter: %w", err)
		}
		b.Parameter(ParameterID(id), code, value)
	}
	return rows.Err()
}

func (l *PostgresLoader) loadStageMap(ctx context.Context, b *Builder) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT current_stage, next_stage FROM stage_map`)
	if err != nil {
		return fmt.Errorf("load stage map: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return fmt.Errorf("scan stage map entry: %w", err)
		}
		b.MapStage(notice.Stage(from), notice.Stage(to))
	}
	return rows.Err()
}

func (l *PostgresLoader) loadReasons(ctx context.Context, b *Builder) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT suspension_type, reason_code, description,
		       default_revival_days, allowed_sources, auto_reapply
		FROM suspension_reasons`)
	if err != nil {
		return fmt.Errorf("load suspension reasons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       ReasonEntry
			typ     string
			sources string
		)
		if err := rows.Scan(&typ, &e.Code, &e.Description,
			&e.DefaultRevivalDays, &sources, &e.AutoReapply); err != nil {
			return fmt.Errorf("scan suspension reason: %w", err)
		}
		e.Type = notice.SuspensionType(typ)
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				e.AllowedSources = append(e.AllowedSources, Source(s))
			}
		}
		b.AddReason(e)
	}
	return rows.Err()
}
