package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
	"noticeflow/internal/refdata"
	"noticeflow/internal/tracking"
	dErrors "noticeflow/pkg/domain-errors"
)

// AdvisoryHoldReason is the catalog reason written when a notice reaches the
// advisory-notice stage. ANL models an out-of-band compliance hold: the stage
// pointers stay where they are and a permanent suspension takes over.
const AdvisoryHoldReason = "ANL"

// Suspender is the slice of the suspension service the engine needs for the
// ANL hold.
type Suspender interface {
	AutoApply(ctx context.Context, no notice.NoticeNo, typ notice.SuspensionType, reasonCode, remarks string) error
}

// Recipient is the identity/address snapshot frozen into the tracking record.
// The eligibility gate resolves it before the engine runs.
type Recipient struct {
	IDNo    string
	Name    string
	Address string
}

// Outcome reports what AdvanceStage did for one notice.
type Outcome struct {
	Notice   *notice.Notice
	Tracking *tracking.Record

	// Frozen means an active suspension blocked advancement; Held means the
	// ANL stage converted the run into a permanent hold. Both leave the stage
	// pointers untouched.
	Frozen bool
	Held   bool
}

// Engine advances notices through their processing stages. It mutates stage
// pointers, derived dates and money; the suspension overlay belongs to the
// suspension service.
type Engine struct {
	notices   notice.Store
	trackings tracking.Store
	refdata   refdata.SnapshotSource
	suspender Suspender
	metrics   *metrics.Metrics
	log       *logrus.Logger
}

func New(notices notice.Store, trackings tracking.Store, src refdata.SnapshotSource, suspender Suspender, m *metrics.Metrics, log *logrus.Logger) *Engine {
	return &Engine{
		notices:   notices,
		trackings: trackings,
		refdata:   src,
		suspender: suspender,
		metrics:   m,
		log:       log,
	}
}

// AdvanceStage moves one notice to targetStage as of asOf and appends the
// stage-group tracking record.
//
// A missing notice is a logged skip, not an error: batch runs carry on with
// their remaining notices. An actively suspended notice is returned frozen
// with no mutation.
func (e *Engine) AdvanceStage(ctx context.Context, no notice.NoticeNo, targetStage notice.Stage, asOf time.Time, rcpt Recipient) (*Outcome, error) {
	if !targetStage.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid target stage "+targetStage.String())
	}

	snap, err := e.refdata.Snapshot(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "load reference data", err)
	}

	n, err := e.notices.FindByNo(ctx, no)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load notice", err)
	}
	if n == nil {
		e.log.WithField("notice", no.String()).Warn("notice not found, skipping stage update")
		return nil, nil
	}

	if n.Suspended() {
		return &Outcome{Notice: n, Frozen: true}, nil
	}

	if targetStage == notice.StageANL {
		if err := e.suspender.AutoApply(ctx, no, notice.SuspensionPermanent, AdvisoryHoldReason,
			"advisory notice letter issued"); err != nil {
			return nil, err
		}
		n, err = e.notices.FindByNo(ctx, no)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "reload notice", err)
		}
		return &Outcome{Notice: n, Held: true}, nil
	}

	if targetStage == notice.StageCPC {
		return e.closeOut(ctx, n, asOf)
	}

	nextStage, ok := snap.NextStage(targetStage)
	if !ok {
		// Configuration-integrity fallback, not a business rule: an unmapped
		// stage closes out rather than wedging the notice.
		nextStage = notice.StageCPC
		e.metrics.ParameterFallbacks.WithLabelValues("STAGEMAP").Inc()
		e.log.WithFields(logrus.Fields{
			"notice": no.String(),
			"stage":  targetStage.String(),
		}).Warn("stage map has no successor, falling back to terminal stage")
	}

	n.PrevProcessingStage = n.LastProcessingStage
	n.PrevProcessingDate = n.LastProcessingDate
	n.LastProcessingStage = targetStage
	n.LastProcessingDate = asOf
	n.NextProcessingStage = nextStage
	n.NextProcessingDate = notice.Midnight(asOf).AddDate(0, 0, e.stageDuration(snap, targetStage))

	e.computeAmountPayable(snap, n, targetStage)
	letterDate, paymentDueDate := e.computeLetterAndDueDates(snap, targetStage, asOf)

	n.IsSync = notice.SyncDirty
	n.UpdatedAt = asOf

	// Tracking first, notice second. If the append fails nothing has been
	// persisted; if the update fails the re-run appends idempotently and then
	// advances. The reverse order can leave an advanced notice with no letter
	// record.
	record := &tracking.Record{
		NoticeNo:         n.NoticeNo,
		DateOfProcessing: notice.Midnight(asOf),
		ProcessingStage:  targetStage,
		Group:            targetStage.Group(),
		LetterDate:       letterDate,
		PaymentDueDate:   paymentDueDate,
		RecipientIDNo:    rcpt.IDNo,
		RecipientName:    rcpt.Name,
		RecipientAddress: rcpt.Address,
		ReminderFlag:     targetStage != notice.StageENA,
		CreatedAt:        asOf,
	}
	written, err := e.trackings.Append(ctx, record)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "append tracking record", err)
	}
	if !written {
		e.log.WithFields(logrus.Fields{
			"notice": no.String(),
			"stage":  targetStage.String(),
			"day":    notice.Midnight(asOf).Format("2006-01-02"),
		}).Debug("tracking record already exists for day, re-run detected")
	}

	if err := e.notices.Update(ctx, n); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update notice", err)
	}

	e.metrics.NoticesAdvanced.WithLabelValues(targetStage.String()).Inc()
	e.log.WithFields(logrus.Fields{
		"notice": no.String(),
		"stage":  targetStage.String(),
		"next":   nextStage.String(),
		"due":    n.NextProcessingDate.Format("2006-01-02"),
	}).Info("stage advanced")

	return &Outcome{Notice: n, Tracking: record}, nil
}

// closeOut parks a notice at the terminal stage. No letter is produced, no
// tracking record is written and no amount is recomputed; the empty next-stage
// pointer keeps the notice out of every future batch selection.
func (e *Engine) closeOut(ctx context.Context, n *notice.Notice, asOf time.Time) (*Outcome, error) {
	n.PrevProcessingStage = n.LastProcessingStage
	n.PrevProcessingDate = n.LastProcessingDate
	n.LastProcessingStage = notice.StageCPC
	n.LastProcessingDate = asOf
	n.NextProcessingStage = ""
	n.NextProcessingDate = time.Time{}
	n.IsSync = notice.SyncDirty
	n.UpdatedAt = asOf

	if err := e.notices.Update(ctx, n); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update notice", err)
	}

	e.metrics.NoticesAdvanced.WithLabelValues(notice.StageCPC.String()).Inc()
	e.log.WithField("notice", n.NoticeNo.String()).Info("notice closed")
	return &Outcome{Notice: n}, nil
}
