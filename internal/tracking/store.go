package tracking

import (
	"context"
	"time"

	"noticeflow/internal/notice"
)

// Store persists stage tracking records. Append writes the record only if no
// row exists for the same (notice, day) in the record's stage group, and
// reports whether a row was written — re-running a day's batch is a no-op.
type Store interface {
	Append(ctx context.Context, r *Record) (written bool, err error)
	ListByNotice(ctx context.Context, no notice.NoticeNo) ([]*Record, error)
	FindByDay(ctx context.Context, no notice.NoticeNo, group notice.StageGroup, day time.Time) (*Record, error)
}
