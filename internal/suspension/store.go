package suspension

import (
	"context"
	"time"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
)

// HistoryStore persists the append-only suspension history.
//
// Append allocates the per-notice sequence number atomically: two concurrent
// suspensions of the same notice must never receive the same seq.
type HistoryStore interface {
	Append(ctx context.Context, r *HistoryRecord) (seq int, err error)
	ListByNotice(ctx context.Context, no notice.NoticeNo) ([]*HistoryRecord, error)

	// CloseOpen stamps revivedAt on the open records for the given source side
	// and returns how many records were closed.
	CloseOpen(ctx context.Context, no notice.NoticeNo, side refdata.Source, revivedAt time.Time) (int, error)
}
