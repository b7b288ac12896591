package suspension

import (
	"time"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
	dErrors "noticeflow/pkg/domain-errors"
)

// HistoryRecord is one row of the append-only suspension/revival log. Seq is
// allocated per notice, monotonically increasing, by the store.
type HistoryRecord struct {
	NoticeNo           notice.NoticeNo
	Seq                int
	SuspensionType     notice.SuspensionType
	ReasonOfSuspension string
	DateOfSuspension   time.Time
	DueDateOfRevival   time.Time
	DateOfRevival      *time.Time // nil until revived
	Authorizer         string
	SourceChannel      refdata.Source
	CaseRef            string
	Remarks            string
}

// Open reports whether the record still awaits revival.
func (r *HistoryRecord) Open() bool {
	return r.DateOfRevival == nil
}

// Request is a manual or backend suspension/revival request covering one or
// more notices. ExplicitRevivalDays overrides the catalog default when > 0.
type Request struct {
	NoticeNos           []notice.NoticeNo
	SuspensionType      notice.SuspensionType
	ReasonCode          string
	Remarks             string
	Authorizer          string
	SourceChannel       refdata.Source
	CaseRef             string
	ExplicitRevivalDays int
}

// Result is the per-notice outcome of a batch request. A failed notice never
// aborts its siblings; callers inspect each Result individually.
type Result struct {
	NoticeNo         notice.NoticeNo
	Err              error
	DueDateOfRevival *time.Time
	Seq              int
}

// Code returns the outcome code: "ok" on success, otherwise the domain error
// code.
func (r Result) Code() string {
	if r.Err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(r.Err))
}
