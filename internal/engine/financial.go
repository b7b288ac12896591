package engine

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
)

// computeAmountPayable derives the administration fee and amount payable for a
// notice entering stage. Money is fixed-point decimal throughout; downstream
// verification compares with exact equality.
//
// At a fee-bearing stage a missing ADM parameter is a configuration-integrity
// fault: the notice degrades to amountPayable = compositionAmount with the fee
// left unset, loudly, rather than inventing a zero fee.
func (e *Engine) computeAmountPayable(snap *refdata.Snapshot, n *notice.Notice, stage notice.Stage) {
	if !stage.FeeBearing() {
		n.AdministrationFee = decimal.NullDecimal{}
		n.AmountPayable = n.CompositionAmount
		return
	}

	fee, ok := snap.Amount(refdata.ParamAdminFee, stage.String())
	if !ok {
		e.metrics.ParameterFallbacks.WithLabelValues(string(refdata.ParamAdminFee)).Inc()
		e.log.WithFields(logrus.Fields{
			"notice": n.NoticeNo.String(),
			"stage":  stage.String(),
		}).Warn("administration fee parameter missing, amount payable degraded to composition amount")
		n.AdministrationFee = decimal.NullDecimal{}
		n.AmountPayable = n.CompositionAmount
		return
	}

	n.AdministrationFee = decimal.NullDecimal{Decimal: fee, Valid: true}
	n.AmountPayable = n.CompositionAmount.Add(fee)
}
