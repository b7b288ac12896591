package suspension

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
	"noticeflow/internal/refdata"
	dErrors "noticeflow/pkg/domain-errors"
)

// SystemAuthorizer stamps history rows written by backend auto-triggers (the
// eligibility gate and the ANL compliance hold).
const SystemAuthorizer = "SYSTEM"

// Service owns the suspension/revival state machine. It is the only writer of
// the suspension overlay fields on a notice; the stage engine freezes on them
// but never mutates them.
type Service struct {
	notices notice.Store
	history HistoryStore
	refdata refdata.SnapshotSource
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewService(notices notice.Store, history HistoryStore, src refdata.SnapshotSource, m *metrics.Metrics, log *logrus.Logger) *Service {
	return &Service{notices: notices, history: history, refdata: src, metrics: m, log: log}
}

// Apply suspends every notice in the request, returning one result per notice.
// Validation failures reject the single notice with no state change; siblings
// continue.
func (s *Service) Apply(ctx context.Context, req Request) []Result {
	return s.run(ctx, req, false)
}

// Check is the dry-run mode: it performs the full reason/source validation and
// revival-duration resolution for every notice without writing any state.
func (s *Service) Check(ctx context.Context, req Request) []Result {
	return s.run(ctx, req, true)
}

func (s *Service) run(ctx context.Context, req Request, dryRun bool) []Result {
	results := make([]Result, 0, len(req.NoticeNos))

	entry, days, err := s.validate(ctx, req)
	if err != nil {
		// Request-level rejections apply to every notice identically.
		for _, no := range req.NoticeNos {
			results = append(results, Result{NoticeNo: no, Err: err})
		}
		return results
	}

	now := time.Now()
	for _, no := range req.NoticeNos {
		results = append(results, s.applyOne(ctx, req, entry, days, no, now, dryRun))
	}
	return results
}

// validate performs the request-level checks shared by Apply and Check and
// resolves the revival duration.
func (s *Service) validate(ctx context.Context, req Request) (refdata.ReasonEntry, int, error) {
	var zero refdata.ReasonEntry

	if !req.SuspensionType.IsValid() {
		return zero, 0, dErrors.New(dErrors.CodeInvalidInput, "suspension type must be TS or PS")
	}
	if req.Authorizer == "" {
		return zero, 0, dErrors.New(dErrors.CodeInvalidInput, "authorizer is required")
	}
	if req.SourceChannel != refdata.SourceInternal && req.SourceChannel != refdata.SourcePartner {
		return zero, 0, dErrors.New(dErrors.CodeInvalidInput, "unknown source channel")
	}

	snap, err := s.refdata.Snapshot(ctx)
	if err != nil {
		return zero, 0, dErrors.Wrap(dErrors.CodeUnavailable, "load reference data", err)
	}

	entry, ok := snap.Reason(req.SuspensionType, req.ReasonCode)
	if !ok {
		return zero, 0, dErrors.New(dErrors.CodePreconditionFailed,
			"reason code "+req.ReasonCode+" not in catalog for type "+string(req.SuspensionType))
	}
	if !entry.AllowedFrom(req.SourceChannel) {
		return zero, 0, dErrors.New(dErrors.CodePreconditionFailed,
			"reason code "+req.ReasonCode+" not permitted for source "+string(req.SourceChannel))
	}

	days, err := s.resolveRevivalDays(snap, req, entry)
	if err != nil {
		return zero, 0, err
	}
	return entry, days, nil
}

// resolveRevivalDays picks, in order: the caller's explicit override, the
// catalog default, then the per-type duration parameter. A request that
// resolves nowhere is rejected rather than silently given a guess.
func (s *Service) resolveRevivalDays(snap *refdata.Snapshot, req Request, entry refdata.ReasonEntry) (int, error) {
	if req.ExplicitRevivalDays > 0 {
		return req.ExplicitRevivalDays, nil
	}
	if entry.DefaultRevivalDays > 0 {
		return entry.DefaultRevivalDays, nil
	}

	paramID := refdata.ParamTSSuspensionDuration
	if req.SuspensionType == notice.SuspensionPermanent {
		paramID = refdata.ParamPSSuspensionDuration
	}
	if days, ok := snap.Days(paramID, string(req.SuspensionType)); ok && days > 0 {
		s.log.WithFields(logrus.Fields{
			"reason":    req.ReasonCode,
			"parameter": string(paramID),
		}).Warn("reason has no default revival days, using type duration parameter")
		return days, nil
	}
	return 0, dErrors.New(dErrors.CodeConfigIntegrity,
		"no revival duration for reason "+req.ReasonCode)
}

func (s *Service) applyOne(ctx context.Context, req Request, entry refdata.ReasonEntry, days int, no notice.NoticeNo, now time.Time, dryRun bool) Result {
	n, err := s.notices.FindByNo(ctx, no)
	if err != nil {
		return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "load notice", err)}
	}
	if n == nil {
		return Result{NoticeNo: no, Err: dErrors.New(dErrors.CodeNotFound, "notice not found")}
	}

	// One-shot reasons do not recur: once a suspension under this reason has
	// been revived, only looping (auto-reapply) reasons may be applied again.
	if !entry.AutoReapply {
		records, err := s.history.ListByNotice(ctx, no)
		if err != nil {
			return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "load history", err)}
		}
		for _, h := range records {
			if h.ReasonOfSuspension == req.ReasonCode && h.SourceChannel == req.SourceChannel && !h.Open() {
				return Result{NoticeNo: no, Err: dErrors.New(dErrors.CodePreconditionFailed,
					"reason "+req.ReasonCode+" was already applied and revived")}
			}
		}
	}

	due := notice.Midnight(now).AddDate(0, 0, days)
	if dryRun {
		return Result{NoticeNo: no, DueDateOfRevival: &due}
	}

	// Fill only this request's side of the overlay; an active suspension on
	// the other side stays untouched.
	switch req.SourceChannel {
	case refdata.SourceInternal:
		n.EPRReasonOfSuspension = req.ReasonCode
		t := now
		n.EPRDateOfSuspension = &t
	case refdata.SourcePartner:
		n.CRSReasonOfSuspension = req.ReasonCode
		t := now
		n.CRSDateOfSuspension = &t
	}

	// Permanent dominates: a PS hold is never downgraded by a later TS.
	if n.SuspensionType != notice.SuspensionPermanent {
		n.SuspensionType = req.SuspensionType
	}
	n.DueDateOfRevival = &due
	n.IsSync = notice.SyncDirty
	n.UpdatedAt = now

	seq, err := s.history.Append(ctx, &HistoryRecord{
		NoticeNo:           no,
		SuspensionType:     req.SuspensionType,
		ReasonOfSuspension: req.ReasonCode,
		DateOfSuspension:   now,
		DueDateOfRevival:   due,
		Authorizer:         req.Authorizer,
		SourceChannel:      req.SourceChannel,
		CaseRef:            req.CaseRef,
		Remarks:            req.Remarks,
	})
	if err != nil {
		return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "append history", err)}
	}

	if err := s.notices.Update(ctx, n); err != nil {
		return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "update notice", err)}
	}

	s.metrics.SuspensionsApplied.WithLabelValues(string(req.SuspensionType), req.ReasonCode).Inc()
	s.log.WithFields(logrus.Fields{
		"notice": no.String(),
		"type":   string(req.SuspensionType),
		"reason": req.ReasonCode,
		"due":    due.Format("2006-01-02"),
		"seq":    seq,
	}).Info("suspension applied")

	return Result{NoticeNo: no, DueDateOfRevival: &due, Seq: seq}
}

// Revive lifts the suspension side owned by the request's source channel.
// Stage pointers are untouched; auto-reapplying reasons may be suspended again
// on the next batch run if their condition recurs.
func (s *Service) Revive(ctx context.Context, req Request) []Result {
	results := make([]Result, 0, len(req.NoticeNos))

	if req.Authorizer == "" {
		err := dErrors.New(dErrors.CodeInvalidInput, "authorizer is required")
		for _, no := range req.NoticeNos {
			results = append(results, Result{NoticeNo: no, Err: err})
		}
		return results
	}
	if req.SourceChannel != refdata.SourceInternal && req.SourceChannel != refdata.SourcePartner {
		err := dErrors.New(dErrors.CodeInvalidInput, "unknown source channel")
		for _, no := range req.NoticeNos {
			results = append(results, Result{NoticeNo: no, Err: err})
		}
		return results
	}

	now := time.Now()
	for _, no := range req.NoticeNos {
		results = append(results, s.reviveOne(ctx, req, no, now))
	}
	return results
}

func (s *Service) reviveOne(ctx context.Context, req Request, no notice.NoticeNo, now time.Time) Result {
	n, err := s.notices.FindByNo(ctx, no)
	if err != nil {
		return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "load notice", err)}
	}
	if n == nil {
		return Result{NoticeNo: no, Err: dErrors.New(dErrors.CodeNotFound, "notice not found")}
	}
	if !n.Suspended() {
		return Result{NoticeNo: no, Err: dErrors.New(dErrors.CodePreconditionFailed, "notice is not suspended")}
	}

	closed, err := s.history.CloseOpen(ctx, no, req.SourceChannel, now)
	if err != nil {
		return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "close history", err)}
	}
	if closed == 0 {
		return Result{NoticeNo: no, Err: dErrors.New(dErrors.CodePreconditionFailed,
			"no open suspension for source "+string(req.SourceChannel))}
	}

	switch req.SourceChannel {
	case refdata.SourceInternal:
		n.EPRReasonOfSuspension = ""
		n.EPRDateOfSuspension = nil
	case refdata.SourcePartner:
		n.CRSReasonOfSuspension = ""
		n.CRSDateOfSuspension = nil
	}
	if !n.Suspended() {
		n.ClearSuspension()
	}
	n.IsSync = notice.SyncDirty
	n.UpdatedAt = now

	if err := s.notices.Update(ctx, n); err != nil {
		return Result{NoticeNo: no, Err: dErrors.Wrap(dErrors.CodeInternal, "update notice", err)}
	}

	s.metrics.Revivals.Inc()
	s.log.WithFields(logrus.Fields{
		"notice": no.String(),
		"side":   string(req.SourceChannel),
	}).Info("suspension revived")

	return Result{NoticeNo: no}
}

// AutoApply is the backend trigger used by the eligibility gate and the ANL
// stage. It runs as the internal source under the system authorizer.
func (s *Service) AutoApply(ctx context.Context, no notice.NoticeNo, typ notice.SuspensionType, reasonCode, remarks string) error {
	results := s.Apply(ctx, Request{
		NoticeNos:      []notice.NoticeNo{no},
		SuspensionType: typ,
		ReasonCode:     reasonCode,
		Remarks:        remarks,
		Authorizer:     SystemAuthorizer,
		SourceChannel:  refdata.SourceInternal,
	})
	return results[0].Err
}

// History exposes the append log for audit views.
func (s *Service) History(ctx context.Context, no notice.NoticeNo) ([]*HistoryRecord, error) {
	return s.history.ListByNotice(ctx, no)
}
