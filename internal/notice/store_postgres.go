package notice

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists notices in PostgreSQL. Pure I/O; stage and suspension
// rules belong to the engine and suspension service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const noticeColumns = `
	notice_no, id_no, id_type, vehicle_no,
	prev_processing_stage, last_processing_stage, next_processing_stage,
	prev_processing_date, last_processing_date, next_processing_date,
	composition_amount, administration_fee, amount_payable,
	suspension_type, epr_reason_of_suspension, epr_date_of_suspension,
	crs_reason_of_suspension, crs_date_of_suspension, due_date_of_revival,
	message_code, payment_accepted, is_sync, created_at, updated_at`

const saveNoticeQuery = `
	INSERT INTO notices (` + noticeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
`

// updateNoticeQuery never rewrites created_at; its bind list is updateArgs, not
// args.
const updateNoticeQuery = `
	UPDATE notices SET
		id_no = $2, id_type = $3, vehicle_no = $4,
		prev_processing_stage = $5, last_processing_stage = $6, next_processing_stage = $7,
		prev_processing_date = $8, last_processing_date = $9, next_processing_date = $10,
		composition_amount = $11, administration_fee = $12, amount_payable = $13,
		suspension_type = $14, epr_reason_of_suspension = $15, epr_date_of_suspension = $16,
		crs_reason_of_suspension = $17, crs_date_of_suspension = $18, due_date_of_revival = $19,
		message_code = $20, payment_accepted = $21, is_sync = $22, updated_at = $23
	WHERE notice_no = $1
`

func (s *PostgresStore) Save(ctx context.Context, n *Notice) error {
	_, err := s.db.ExecContext(ctx, saveNoticeQuery, args(n)...)
	if err != nil {
		return fmt.Errorf("save notice: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, n *Notice) error {
	result, err := s.db.ExecContext(ctx, updateNoticeQuery, updateArgs(n)...)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notice rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update notice: %s not found", n.NoticeNo)
	}
	return nil
}

func (s *PostgresStore) FindByNo(ctx context.Context, no NoticeNo) (*Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices WHERE notice_no = $1`
	n, err := scanNotice(s.db.QueryRowContext(ctx, query, no))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find notice: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByNextStage(ctx context.Context, stage Stage, dueBy time.Time) ([]*Notice, error) {
	query := `
		SELECT ` + noticeColumns + `
		FROM notices
		WHERE next_processing_stage = $1 AND next_processing_date <= $2
		ORDER BY notice_no
	`
	rows, err := s.db.QueryContext(ctx, query, stage, dueBy)
	if err != nil {
		return nil, fmt.Errorf("list by next stage: %w", err)
	}
	defer rows.Close()
	return collectNotices(rows)
}

func (s *PostgresStore) ListDirty(ctx context.Context, limit int) ([]*Notice, error) {
	query := `
		SELECT ` + noticeColumns + `
		FROM notices
		WHERE is_sync = 'N'
		ORDER BY updated_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list dirty: %w", err)
	}
	defer rows.Close()
	return collectNotices(rows)
}

func (s *PostgresStore) MarkSynced(ctx context.Context, no NoticeNo) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notices SET is_sync = 'Y' WHERE notice_no = $1`, no)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark synced rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark synced: %s not found", no)
	}
	return nil
}

func args(n *Notice) []any {
	return append(updateArgs(n)[:22], n.CreatedAt, n.UpdatedAt)
}

func updateArgs(n *Notice) []any {
	return []any{
		n.NoticeNo, n.IDNo, n.IDType, n.VehicleNo,
		nullStage(n.PrevProcessingStage), n.LastProcessingStage, nullStage(n.NextProcessingStage),
		nullTime(n.PrevProcessingDate), n.LastProcessingDate, nullTime(n.NextProcessingDate),
		n.CompositionAmount, n.AdministrationFee, n.AmountPayable,
		nullString(string(n.SuspensionType)), nullString(n.EPRReasonOfSuspension), n.EPRDateOfSuspension,
		nullString(n.CRSReasonOfSuspension), n.CRSDateOfSuspension, n.DueDateOfRevival,
		nullString(n.MessageCode), n.PaymentAccepted, n.IsSync, n.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotice(row rowScanner) (*Notice, error) {
	var (
		n         Notice
		prevStage sql.NullString
		nextStage sql.NullString
		prevDate  sql.NullTime
		nextDate  sql.NullTime
		suspType  sql.NullString
		eprReason sql.NullString
		eprDate   sql.NullTime
		crsReason sql.NullString
		crsDate   sql.NullTime
		dueDate   sql.NullTime
		msgCode   sql.NullString
	)
	err := row.Scan(
		&n.NoticeNo, &n.IDNo, &n.IDType, &n.VehicleNo,
		&prevStage, &n.LastProcessingStage, &nextStage,
		&prevDate, &n.LastProcessingDate, &nextDate,
		&n.CompositionAmount, &n.AdministrationFee, &n.AmountPayable,
		&suspType, &eprReason, &eprDate,
		&crsReason, &crsDate, &dueDate,
		&msgCode, &n.PaymentAccepted, &n.IsSync, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.PrevProcessingStage = Stage(prevStage.String)
	n.NextProcessingStage = Stage(nextStage.String)
	if prevDate.Valid {
		n.PrevProcessingDate = prevDate.Time
	}
	if nextDate.Valid {
		n.NextProcessingDate = nextDate.Time
	}
	n.SuspensionType = SuspensionType(suspType.String)
	n.EPRReasonOfSuspension = eprReason.String
	n.CRSReasonOfSuspension = crsReason.String
	n.MessageCode = msgCode.String
	if eprDate.Valid {
		t := eprDate.Time
		n.EPRDateOfSuspension = &t
	}
	if crsDate.Valid {
		t := crsDate.Time
		n.CRSDateOfSuspension = &t
	}
	if dueDate.Valid {
		t := dueDate.Time
		n.DueDateOfRevival = &t
	}
	return &n, nil
}

func collectNotices(rows *sql.Rows) ([]*Notice, error) {
	var out []*Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStage(s Stage) sql.NullString {
	return nullString(string(s))
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
