package eligibility

import (
	"context"

	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
)

// Gate performs the pre-advancement checks: deliverable address and completed
// registry enrichment. It never mutates state; ineligible candidates come back
// as auto-suspension side effects for the caller to apply.
type Gate struct {
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewGate(m *metrics.Metrics, log *logrus.Logger) *Gate {
	return &Gate{metrics: m, log: log}
}

// Filter splits candidates for a target stage into eligible notices and
// auto-suspension side effects.
func (g *Gate) Filter(_ context.Context, candidates []Candidate, stage notice.Stage) ([]Eligible, []AutoSuspension) {
	eligible := make([]Eligible, 0, len(candidates))
	var held []AutoSuspension

	for _, c := range candidates {
		sel, cause := g.check(c, stage)
		if sel.Found {
			eligible = append(eligible, Eligible{Candidate: c, Selection: sel})
			continue
		}
		if c.Exempt {
			g.log.WithField("notice", c.Notice.NoticeNo.String()).
				Debug("ineligible but exempt, excluded without suspension")
			continue
		}
		held = append(held, AutoSuspension{NoticeNo: c.Notice.NoticeNo, Cause: cause})
		g.metrics.AutoSuspensions.WithLabelValues(string(cause)).Inc()
		g.log.WithFields(logrus.Fields{
			"notice": c.Notice.NoticeNo.String(),
			"stage":  stage.String(),
			"cause":  string(cause),
		}).Info("candidate routed to auto-suspension")
	}

	return eligible, held
}

func (g *Gate) check(c Candidate, stage notice.Stage) (Selection, Cause) {
	// Closing out produces no letter, so there is nothing to deliver and
	// nothing to gate on.
	if stage == notice.StageCPC {
		return Selection{Found: true}, ""
	}

	// NRIC/FIN identities must have completed registry enrichment before any
	// letter can name them.
	if c.Notice.IDType.Mandatory() && !c.Enriched {
		return Selection{}, CauseEnrichmentMissing
	}

	// Demand letters go to the furnished driver: DN1 requires the furnished
	// channel itself, other channels do not substitute.
	if stage == notice.StageDN1 {
		if addr, ok := c.Addresses[ChannelFurnished]; ok && !addr.Blank() {
			return Selection{Found: true, Channel: ChannelFurnished, Address: addr}, ""
		}
		return Selection{}, CauseNoFurnished
	}

	sel := selectAddress(c)
	if sel.Found {
		return sel, ""
	}
	if c.Notice.IDType == notice.IDTypeUEN {
		return Selection{}, CauseChainExhausted
	}
	return Selection{}, CauseNoAddress
}

// selectAddress walks the deliverable-address channels in their fixed priority
// order. The order is load-bearing: downstream audits reconstruct delivery
// decisions from which channel won.
func selectAddress(c Candidate) Selection {
	var chain []Channel
	switch c.Notice.IDType {
	case notice.IDTypeUEN:
		chain = []Channel{ChannelFurnished, ChannelRegistered, ChannelMailing}
	default:
		chain = []Channel{ChannelRegistered, ChannelMailing}
	}

	for _, ch := range chain {
		if addr, ok := c.Addresses[ch]; ok && !addr.Blank() {
			return Selection{Found: true, Channel: ch, Address: addr}
		}
	}
	return Selection{}
}
