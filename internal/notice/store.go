package notice

import (
	"context"
	"time"
)

// Store is the primary-record persistence port for notices. Implementations
// are pure I/O; all stage and suspension rules live in the services.
//
// FindByNo returns (nil, nil) when the notice does not exist so batch callers
// can treat absence as a skip, not an error.
type Store interface {
	Save(ctx context.Context, n *Notice) error
	Update(ctx context.Context, n *Notice) error
	FindByNo(ctx context.Context, no NoticeNo) (*Notice, error)

	// ListByNextStage selects batch candidates: notices whose next stage is
	// stage and whose next processing date is on or before dueBy.
	ListByNextStage(ctx context.Context, stage Stage, dueBy time.Time) ([]*Notice, error)

	// ListDirty returns notices whose replica sync is pending, oldest first.
	ListDirty(ctx context.Context, limit int) ([]*Notice, error)

	// MarkSynced flips the sync flag back to clean after a replica push.
	MarkSynced(ctx context.Context, no NoticeNo) error
}
