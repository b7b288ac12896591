package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
)

// DerivedFields is the bounded field set propagated to the internet replica.
// Nothing else crosses the boundary; the replica is a read model, not a copy.
type DerivedFields struct {
	NoticeNo            notice.NoticeNo
	LastProcessingStage notice.Stage
	NextProcessingStage notice.Stage
	AmountPayable       string // decimal string, two places
	SuspensionType      notice.SuspensionType
	EPRReason           string
	CRSReason           string
	DueDateOfRevival    string // yyyy-mm-dd, empty when none
	MessageCode         string
	PaymentAccepted     bool
}

// Target is the secondary-store port.
type Target interface {
	Apply(ctx context.Context, fields DerivedFields) error
}

// Syncer pushes derived fields to the replica with bounded retry. The primary
// write is never rolled back for a replica failure: exhaustion leaves the
// notice dirty and the sweeper picks it up later.
type Syncer struct {
	notices  notice.Store
	target   Target
	attempts int
	baseWait time.Duration
	metrics  *metrics.Metrics
	log      *logrus.Logger
}

func New(notices notice.Store, target Target, m *metrics.Metrics, log *logrus.Logger) *Syncer {
	return &Syncer{
		notices:  notices,
		target:   target,
		attempts: 3,
		baseWait: 100 * time.Millisecond,
		metrics:  m,
		log:      log,
	}
}

// SyncDerived propagates n's derived fields. The returned error is for
// observability only; callers treat sync as fire-and-continue.
func (s *Syncer) SyncDerived(ctx context.Context, n *notice.Notice) error {
	if s.target == nil {
		// Replica not configured; the dirty flag stays for a later sweep.
		return nil
	}

	fields := Derive(n)

	var lastErr error
	wait := s.baseWait
retries:
	for attempt := 1; attempt <= s.attempts; attempt++ {
		lastErr = s.target.Apply(ctx, fields)
		if lastErr == nil {
			if err := s.notices.MarkSynced(ctx, n.NoticeNo); err != nil {
				s.log.WithField("notice", n.NoticeNo.String()).
					WithError(err).Warn("replica synced but flag not cleared")
				return err
			}
			s.metrics.ReplicaSyncSuccesses.Inc()
			return nil
		}
		if attempt < s.attempts {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break retries
			case <-time.After(wait):
				wait *= 2
			}
		}
	}

	s.metrics.ReplicaSyncFailures.Inc()
	s.log.WithFields(logrus.Fields{
		"notice": n.NoticeNo.String(),
	}).WithError(lastErr).Warn("replica sync exhausted retries, notice left dirty")
	return lastErr
}

// Derive extracts the bounded field set from a notice.
func Derive(n *notice.Notice) DerivedFields {
	f := DerivedFields{
		NoticeNo:            n.NoticeNo,
		LastProcessingStage: n.LastProcessingStage,
		NextProcessingStage: n.NextProcessingStage,
		AmountPayable:       n.AmountPayable.StringFixed(2),
		SuspensionType:      n.SuspensionType,
		EPRReason:           n.EPRReasonOfSuspension,
		CRSReason:           n.CRSReasonOfSuspension,
		MessageCode:         n.MessageCode,
		PaymentAccepted:     n.PaymentAccepted,
	}
	if n.DueDateOfRevival != nil {
		f.DueDateOfRevival = n.DueDateOfRevival.Format("2006-01-02")
	}
	return f
}
