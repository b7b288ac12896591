package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"noticeflow/internal/notice"
)

// PostgresStore persists tracking records across two tables, one per stage
// group (reminder_tracking, demand_tracking). The per-table primary key
// (notice_no, date_of_processing) enforces same-day idempotency; Append relies
// on ON CONFLICT DO NOTHING rather than a read-then-write check.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func tableFor(group notice.StageGroup) string {
	if group == notice.GroupDemand {
		return "demand_tracking"
	}
	return "reminder_tracking"
}

func (s *PostgresStore) Append(ctx context.Context, r *Record) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (notice_no, date_of_processing, processing_stage,
			letter_date, payment_due_date, recipient_id_no, recipient_name,
			recipient_address, reminder_flag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (notice_no, date_of_processing) DO NOTHING
	`, tableFor(r.Group))

	result, err := s.db.ExecContext(ctx, query,
		r.NoticeNo, notice.Midnight(r.DateOfProcessing), r.ProcessingStage,
		r.LetterDate, r.PaymentDueDate, r.RecipientIDNo, r.RecipientName,
		r.RecipientAddress, r.ReminderFlag, r.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("append tracking record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append tracking rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) ListByNotice(ctx context.Context, no notice.NoticeNo) ([]*Record, error) {
	var out []*Record
	for _, group := range []notice.StageGroup{notice.GroupReminder, notice.GroupDemand} {
		records, err := s.listGroup(ctx, no, group)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (s *PostgresStore) listGroup(ctx context.Context, no notice.NoticeNo, group notice.StageGroup) ([]*Record, error) {
	query := fmt.Sprintf(`
		SELECT notice_no, date_of_processing, processing_stage, letter_date,
		       payment_due_date, recipient_id_no, recipient_name,
		       recipient_address, reminder_flag, created_at
		FROM %s
		WHERE notice_no = $1
		ORDER BY date_of_processing
	`, tableFor(group))

	rows, err := s.db.QueryContext(ctx, query, no)
	if err != nil {
		return nil, fmt.Errorf("list tracking records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows, group)
		if err != nil {
			return nil, fmt.Errorf("scan tracking record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByDay(ctx context.Context, no notice.NoticeNo, group notice.StageGroup, day time.Time) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT notice_no, date_of_processing, processing_stage, letter_date,
		       payment_due_date, recipient_id_no, recipient_name,
		       recipient_address, reminder_flag, created_at
		FROM %s
		WHERE notice_no = $1 AND date_of_processing = $2
	`, tableFor(group))

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, no, notice.Midnight(day)), group)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find tracking record: %w", err)
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, group notice.StageGroup) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.NoticeNo, &r.DateOfProcessing, &r.ProcessingStage, &r.LetterDate,
		&r.PaymentDueDate, &r.RecipientIDNo, &r.RecipientName,
		&r.RecipientAddress, &r.ReminderFlag, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Group = group
	return &r, nil
}
