package tracking

import (
	"time"

	"noticeflow/internal/notice"
)

// Record is a per-day, per-notice audit row recording that a reminder or
// demand letter event occurred. Downstream letter generation consumes these;
// the (notice, day) uniqueness key makes same-day batch re-runs idempotent.
type Record struct {
	NoticeNo         notice.NoticeNo
	DateOfProcessing time.Time // truncated to midnight
	ProcessingStage  notice.Stage
	Group            notice.StageGroup
	LetterDate       time.Time
	PaymentDueDate   time.Time

	// Recipient snapshot frozen at processing time so later address changes
	// cannot alter what the letter said.
	RecipientIDNo    string
	RecipientName    string
	RecipientAddress string

	ReminderFlag bool
	CreatedAt    time.Time
}
