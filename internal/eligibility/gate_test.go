package eligibility

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
)

type GateSuite struct {
	suite.Suite
	gate *Gate
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s.gate = NewGate(metrics.NewWith(prometheus.NewRegistry()), log)
}

func candidate(no notice.NoticeNo, idType notice.IDType) Candidate {
	return Candidate{
		Notice: &notice.Notice{
			NoticeNo: no,
			IDType:   idType,
		},
		Name:      "TAN AH KOW",
		Addresses: map[Channel]Address{},
		Enriched:  true,
	}
}

var validAddr = Address{Line1: "BLK 71 AYER RAJAH CRESCENT", PostalCode: "139951"}

func (s *GateSuite) TestFilter() {
	ctx := context.Background()

	s.Run("candidate with a registered address is eligible", func() {
		c := candidate("N3001", notice.IDTypeNRIC)
		c.Addresses[ChannelRegistered] = validAddr

		eligible, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Require().Len(eligible, 1)
		s.Empty(held)
		s.Equal(ChannelRegistered, eligible[0].Selection.Channel)
	})

	s.Run("candidate with no address becomes an auto-suspension, not an error", func() {
		c := candidate("N3002", notice.IDTypeNRIC)

		eligible, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Empty(eligible)
		s.Require().Len(held, 1)
		s.Equal(notice.NoticeNo("N3002"), held[0].NoticeNo)
		s.Equal(CauseNoAddress, held[0].Cause)
	})

	s.Run("an all-blank address record counts as no address", func() {
		c := candidate("N3003", notice.IDTypeNRIC)
		c.Addresses[ChannelRegistered] = Address{Line1: "  ", PostalCode: ""}

		eligible, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Empty(eligible)
		s.Require().Len(held, 1)
		s.Equal(CauseNoAddress, held[0].Cause)
	})

	s.Run("mailing address serves as fallback when registered is absent", func() {
		c := candidate("N3004", notice.IDTypeNRIC)
		c.Addresses[ChannelMailing] = validAddr

		eligible, _ := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Require().Len(eligible, 1)
		s.Equal(ChannelMailing, eligible[0].Selection.Channel)
	})

	s.Run("corporate identities prefer the furnished address first", func() {
		c := candidate("N3005", notice.IDTypeUEN)
		c.Addresses[ChannelFurnished] = validAddr
		c.Addresses[ChannelRegistered] = Address{Line1: "OTHER ROAD", PostalCode: "111111"}

		eligible, _ := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Require().Len(eligible, 1)
		s.Equal(ChannelFurnished, eligible[0].Selection.Channel)
	})

	s.Run("corporate chain exhaustion is its own cause", func() {
		c := candidate("N3006", notice.IDTypeUEN)

		_, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Require().Len(held, 1)
		s.Equal(CauseChainExhausted, held[0].Cause)
	})

	s.Run("demand stage requires the furnished channel specifically", func() {
		c := candidate("N3007", notice.IDTypeNRIC)
		c.Addresses[ChannelRegistered] = validAddr
		c.Addresses[ChannelMailing] = validAddr

		_, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageDN1)
		s.Require().Len(held, 1)
		s.Equal(CauseNoFurnished, held[0].Cause)

		c.Addresses[ChannelFurnished] = validAddr
		eligible, _ := s.gate.Filter(ctx, []Candidate{c}, notice.StageDN1)
		s.Require().Len(eligible, 1)
		s.Equal(ChannelFurnished, eligible[0].Selection.Channel)
	})

	s.Run("mandatory identity without enrichment is held even with addresses", func() {
		c := candidate("N3008", notice.IDTypeFIN)
		c.Addresses[ChannelRegistered] = validAddr
		c.Enriched = false

		_, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Require().Len(held, 1)
		s.Equal(CauseEnrichmentMissing, held[0].Cause)
	})

	s.Run("terminal-stage candidates pass without delivery checks", func() {
		c := candidate("N3010", notice.IDTypeNRIC)
		c.Enriched = false

		eligible, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageCPC)
		s.Require().Len(eligible, 1)
		s.Empty(held)
		s.Empty(eligible[0].Selection.Channel)
	})

	s.Run("exempt candidates are excluded without a suspension side effect", func() {
		c := candidate("N3009", notice.IDTypeNRIC)
		c.Exempt = true

		eligible, held := s.gate.Filter(ctx, []Candidate{c}, notice.StageRD2)
		s.Empty(eligible)
		s.Empty(held)
	})
}

func (s *GateSuite) TestAddressFormat() {
	s.Equal("BLK 71 AYER RAJAH CRESCENT, 139951", validAddr.Format())
	s.Equal("", Address{}.Format())
}
