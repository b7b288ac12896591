package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"noticeflow/internal/eligibility"
	"noticeflow/internal/engine"
	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
	"noticeflow/internal/suspension"
	"noticeflow/internal/syncer"
	dErrors "noticeflow/pkg/domain-errors"
)

// ItemStatus is the per-notice outcome of a batch run. A batch never fails as
// a whole; every notice reports its own status.
type ItemStatus string

const (
	StatusAdvanced      ItemStatus = "advanced"
	StatusFrozen        ItemStatus = "frozen"
	StatusHeld          ItemStatus = "held"
	StatusAutoSuspended ItemStatus = "auto_suspended"
	StatusSkipped       ItemStatus = "skipped"
	StatusError         ItemStatus = "error"
)

// Item is one notice's outcome in a RunReport.
type Item struct {
	NoticeNo notice.NoticeNo
	Status   ItemStatus
	Cause    eligibility.Cause // set for auto_suspended items
	Err      error
}

// RunReport summarises one (stage, run-date) batch invocation.
type RunReport struct {
	RunID    uuid.UUID
	Stage    notice.Stage
	RunDate  time.Time
	Total    int
	Advanced int
	Items    []Item
}

// Driver runs stage batches: select candidates, gate them, advance the
// eligible ones, and push derived fields to the replica.
type Driver struct {
	notices   notice.Store
	contacts  ContactSource
	gate      *eligibility.Gate
	engine    *engine.Engine
	suspender *suspension.Service
	syncer    *syncer.Syncer
	workers   int
	metrics   *metrics.Metrics
	log       *logrus.Logger
}

func NewDriver(
	notices notice.Store,
	contacts ContactSource,
	gate *eligibility.Gate,
	eng *engine.Engine,
	suspender *suspension.Service,
	sync *syncer.Syncer,
	workers int,
	m *metrics.Metrics,
	log *logrus.Logger,
) *Driver {
	if workers < 1 {
		workers = 1
	}
	return &Driver{
		notices:   notices,
		contacts:  contacts,
		gate:      gate,
		engine:    eng,
		suspender: suspender,
		syncer:    sync,
		workers:   workers,
		metrics:   m,
		log:       log,
	}
}

// RunStage processes every notice whose next stage is stage and whose next
// processing date is due on runDate. Re-running the same (stage, day) is
// idempotent: the tracking-record day key absorbs duplicates.
func (d *Driver) RunStage(ctx context.Context, stage notice.Stage, runDate time.Time) (*RunReport, error) {
	report := &RunReport{
		RunID:   uuid.New(),
		Stage:   stage,
		RunDate: notice.Midnight(runDate),
	}

	candidates, err := d.notices.ListByNextStage(ctx, stage, notice.Midnight(runDate))
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "select batch candidates", err)
	}
	report.Total = len(candidates)
	if len(candidates) == 0 {
		return report, nil
	}

	d.log.WithFields(logrus.Fields{
		"run":        report.RunID.String(),
		"stage":      stage.String(),
		"date":       report.RunDate.Format("2006-01-02"),
		"candidates": len(candidates),
	}).Info("stage batch started")

	assembled := make([]eligibility.Candidate, 0, len(candidates))
	for _, n := range candidates {
		c, err := d.contacts.Candidate(ctx, n)
		if err != nil {
			report.Items = append(report.Items, Item{NoticeNo: n.NoticeNo, Status: StatusError, Err: err})
			d.metrics.BatchItemErrors.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
			continue
		}
		assembled = append(assembled, c)
	}

	eligible, held := d.gate.Filter(ctx, assembled, stage)

	// Auto-suspensions are side effects, not failures: the business outcome
	// for an undeliverable notice is "hold, don't fail".
	for _, h := range held {
		item := Item{NoticeNo: h.NoticeNo, Status: StatusAutoSuspended, Cause: h.Cause}
		if err := d.suspender.AutoApply(ctx, h.NoticeNo, notice.SuspensionTemporary,
			eligibility.AutoSuspendReason, "auto: "+string(h.Cause)); err != nil {
			item.Status = StatusError
			item.Err = err
			d.metrics.BatchItemErrors.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		}
		report.Items = append(report.Items, item)
	}

	var (
		mu    sync.Mutex
		locks = newKeyedMutex()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, e := range eligible {
		e := e
		g.Go(func() error {
			item := d.advanceOne(gctx, e, stage, runDate, locks)
			mu.Lock()
			report.Items = append(report.Items, item)
			if item.Status == StatusAdvanced {
				report.Advanced++
			}
			mu.Unlock()
			// Worker errors are captured per item; the group only aborts on
			// context cancellation.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, dErrors.Wrap(dErrors.CodeInternal, "batch interrupted", err)
	}

	d.log.WithFields(logrus.Fields{
		"run":      report.RunID.String(),
		"stage":    stage.String(),
		"advanced": report.Advanced,
		"held":     len(held),
	}).Info("stage batch completed")

	return report, nil
}

func (d *Driver) advanceOne(ctx context.Context, e eligibility.Eligible, stage notice.Stage, runDate time.Time, locks *keyedMutex) Item {
	no := e.Candidate.Notice.NoticeNo
	unlock := locks.Lock(no)
	defer unlock()

	outcome, err := d.engine.AdvanceStage(ctx, no, stage, runDate, engine.Recipient{
		IDNo:    e.Candidate.Notice.IDNo,
		Name:    e.Candidate.Name,
		Address: e.Selection.Address.Format(),
	})
	if err != nil {
		d.metrics.BatchItemErrors.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		return Item{NoticeNo: no, Status: StatusError, Err: err}
	}
	if outcome == nil {
		return Item{NoticeNo: no, Status: StatusSkipped}
	}
	if outcome.Frozen {
		return Item{NoticeNo: no, Status: StatusFrozen}
	}
	if outcome.Held {
		return Item{NoticeNo: no, Status: StatusHeld}
	}

	// Fire-and-continue: a stuck replica must not stall the batch; failures
	// leave the dirty flag for the sweeper.
	if err := d.syncer.SyncDerived(ctx, outcome.Notice); err != nil {
		d.log.WithField("notice", no.String()).WithError(err).
			Debug("replica sync deferred to sweeper")
	}

	return Item{NoticeNo: no, Status: StatusAdvanced}
}
