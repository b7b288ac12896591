package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
)

// Fallback constants for missing date parameters. These exist as degradation
// only; steady state reads POS and PDD from the parameter table.
const (
	fallbackPostageDays    = 14
	fallbackPaymentDueDays = 28
	fallbackStageDays      = 14
)

// computeLetterAndDueDates derives the letter date and payment due date for a
// stage from baseDate.
func (e *Engine) computeLetterAndDueDates(snap *refdata.Snapshot, stage notice.Stage, baseDate time.Time) (letterDate, paymentDueDate time.Time) {
	base := notice.Midnight(baseDate)

	pos, ok := snap.Days(refdata.ParamPostage, stage.String())
	if !ok {
		pos = fallbackPostageDays
		e.warnFallback(refdata.ParamPostage, stage)
	}
	letterDate = base.AddDate(0, 0, pos)

	pdd, ok := snap.Days(refdata.ParamPaymentDue, stage.String())
	if !ok {
		pdd = fallbackPaymentDueDays
		e.warnFallback(refdata.ParamPaymentDue, stage)
	}
	paymentDueDate = letterDate.AddDate(0, 0, pdd)
	return letterDate, paymentDueDate
}

// stageDuration returns the days until the next stage falls due.
func (e *Engine) stageDuration(snap *refdata.Snapshot, stage notice.Stage) int {
	days, ok := snap.Days(refdata.ParamStageDays, stage.String())
	if !ok {
		e.warnFallback(refdata.ParamStageDays, stage)
		return fallbackStageDays
	}
	return days
}

func (e *Engine) warnFallback(id refdata.ParameterID, stage notice.Stage) {
	e.metrics.ParameterFallbacks.WithLabelValues(string(id)).Inc()
	e.log.WithFields(logrus.Fields{
		"parameter": string(id),
		"stage":     stage.String(),
	}).Warn("parameter missing, using fallback constant")
}
