package suspension

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
)

// PostgresHistoryStore persists suspension history in PostgreSQL.
//
// Sequence allocation uses a single INSERT that selects max(seq)+1 under the
// (notice_no, seq) primary key. A concurrent insert for the same notice makes
// one of the two statements fail with a unique violation; Append retries until
// it wins a fresh sequence number. This keeps seq monotonic without a
// table-level lock.
type PostgresHistoryStore struct {
	db *sql.DB
}

func NewPostgresHistory(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

const maxSeqRetries = 5

func (s *PostgresHistoryStore) Append(ctx context.Context, r *HistoryRecord) (int, error) {
	query := `
		INSERT INTO suspension_history (
			notice_no, seq, suspension_type, reason_of_suspension,
			date_of_suspension, due_date_of_revival, date_of_revival,
			authorizer, source_channel, case_ref, remarks)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, NULL, $6, $7, $8, $9
		FROM suspension_history WHERE notice_no = $1
		RETURNING seq
	`
	var seq int
	for attempt := 0; attempt < maxSeqRetries; attempt++ {
		err := s.db.QueryRowContext(ctx, query,
			r.NoticeNo, r.SuspensionType, r.ReasonOfSuspension,
			r.DateOfSuspension, r.DueDateOfRevival,
			r.Authorizer, r.SourceChannel, r.CaseRef, r.Remarks,
		).Scan(&seq)
		if err == nil {
			return seq, nil
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			continue
		}
		return 0, fmt.Errorf("append suspension history: %w", err)
	}
	return 0, fmt.Errorf("append suspension history: sequence contention for %s", r.NoticeNo)
}

func (s *PostgresHistoryStore) ListByNotice(ctx context.Context, no notice.NoticeNo) ([]*HistoryRecord, error) {
	query := `
		SELECT notice_no, seq, suspension_type, reason_of_suspension,
		       date_of_suspension, due_date_of_revival, date_of_revival,
		       authorizer, source_channel, case_ref, remarks
		FROM suspension_history
		WHERE notice_no = $1
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, no)
	if err != nil {
		return nil, fmt.Errorf("list suspension history: %w", err)
	}
	defer rows.Close()

	var out []*HistoryRecord
	for rows.Next() {
		var (
			r       HistoryRecord
			revived sql.NullTime
			caseRef sql.NullString
			remarks sql.NullString
		)
		err := rows.Scan(&r.NoticeNo, &r.Seq, &r.SuspensionType, &r.ReasonOfSuspension,
			&r.DateOfSuspension, &r.DueDateOfRevival, &revived,
			&r.Authorizer, &r.SourceChannel, &caseRef, &remarks)
		if err != nil {
			return nil, fmt.Errorf("scan suspension history: %w", err)
		}
		if revived.Valid {
			t := revived.Time
			r.DateOfRevival = &t
		}
		r.CaseRef = caseRef.String
		r.Remarks = remarks.String
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspension history: %w", err)
	}
	return out, nil
}

func (s *PostgresHistoryStore) CloseOpen(ctx context.Context, no notice.NoticeNo, side refdata.Source, revivedAt time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE suspension_history
		SET date_of_revival = $3
		WHERE notice_no = $1 AND source_channel = $2 AND date_of_revival IS NULL
	`, no, side, revivedAt)
	if err != nil {
		return 0, fmt.Errorf("close open suspensions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close open rows affected: %w", err)
	}
	return int(rows), nil
}
