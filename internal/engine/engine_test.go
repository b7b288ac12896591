package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"noticeflow/internal/notice"
	"noticeflow/internal/platform/metrics"
	"noticeflow/internal/refdata"
	"noticeflow/internal/suspension"
	"noticeflow/internal/tracking"
)

type EngineSuite struct {
	suite.Suite
	notices   *notice.InMemoryStore
	trackings *tracking.InMemoryStore
	history   *suspension.InMemoryHistoryStore
	engine    *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testSnapshot() *refdata.Snapshot {
	return refdata.NewBuilder().
		MapStage(notice.StageENA, notice.StageRD1).
		MapStage(notice.StageRD1, notice.StageRD2).
		MapStage(notice.StageRD2, notice.StageRR3).
		MapStage(notice.StageDN1, notice.StageDN2).
		MapStage(notice.StageDN2, notice.StageDR3).
		MapStage(notice.StageDR3, notice.StageCPC).
		ParameterDays(refdata.ParamStageDays, "RD1", 21).
		ParameterDays(refdata.ParamStageDays, "RD2", 14).
		ParameterDays(refdata.ParamStageDays, "RR3", 14).
		ParameterDays(refdata.ParamPostage, "RD1", 3).
		ParameterDays(refdata.ParamPaymentDue, "RD1", 21).
		Parameter(refdata.ParamAdminFee, "RR3", decimal.RequireFromString("20.00")).
		AddReason(refdata.ReasonEntry{
			Type:               notice.SuspensionPermanent,
			Code:               AdvisoryHoldReason,
			Description:        "advisory notice letter hold",
			DefaultRevivalDays: 365,
			AllowedSources:     []refdata.Source{refdata.SourceInternal},
		}).
		Build()
}

func (s *EngineSuite) SetupTest() {
	s.notices = notice.NewInMemory()
	s.trackings = tracking.NewInMemory()
	s.history = suspension.NewInMemoryHistory()

	log := testLogger()
	m := metrics.NewWith(prometheus.NewRegistry())
	src := refdata.Static(testSnapshot())
	suspender := suspension.NewService(s.notices, s.history, src, m, log)
	s.engine = New(s.notices, s.trackings, src, suspender, m, log)
}

func (s *EngineSuite) seedNotice(no notice.NoticeNo, next notice.Stage) *notice.Notice {
	n := &notice.Notice{
		NoticeNo:            no,
		IDNo:                "S1234567D",
		IDType:              notice.IDTypeNRIC,
		VehicleNo:           "SGX1234A",
		LastProcessingStage: notice.StageENA,
		LastProcessingDate:  time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
		NextProcessingStage: next,
		NextProcessingDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CompositionAmount:   decimal.RequireFromString("70.00"),
		AmountPayable:       decimal.RequireFromString("70.00"),
		IsSync:              notice.SyncClean,
		CreatedAt:           time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.notices.Save(context.Background(), n))
	return n
}

func (s *EngineSuite) TestAdvanceStage() {
	ctx := context.Background()
	asOf := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)

	s.Run("advancing to RD1 shifts the stage triple and derives dates", func() {
		s.SetupTest()
		s.seedNotice("N0001", notice.StageRD1)

		outcome, err := s.engine.AdvanceStage(ctx, "N0001", notice.StageRD1, asOf, Recipient{Name: "TAN AH KOW"})
		s.Require().NoError(err)
		s.Require().NotNil(outcome)

		n := outcome.Notice
		s.Equal(notice.StageENA, n.PrevProcessingStage)
		s.Equal(notice.StageRD1, n.LastProcessingStage)
		s.Equal(notice.StageRD2, n.NextProcessingStage)
		s.Equal(asOf, n.LastProcessingDate)
		s.Equal(time.Date(2025, 1, 22, 0, 0, 0, 0, time.UTC), n.NextProcessingDate)
		s.Equal(notice.SyncDirty, n.IsSync)
	})

	s.Run("tracking record carries letter and payment due dates", func() {
		s.SetupTest()
		s.seedNotice("N0002", notice.StageRD1)

		outcome, err := s.engine.AdvanceStage(ctx, "N0002", notice.StageRD1, asOf, Recipient{Name: "TAN AH KOW"})
		s.Require().NoError(err)
		s.Require().NotNil(outcome.Tracking)

		r := outcome.Tracking
		s.Equal(time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), r.LetterDate)
		s.Equal(time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC), r.PaymentDueDate)
		s.Equal(notice.GroupReminder, r.Group)
		s.True(r.ReminderFlag)
	})

	s.Run("same-day re-run does not duplicate the tracking record", func() {
		s.SetupTest()
		s.seedNotice("N0003", notice.StageRD1)

		_, err := s.engine.AdvanceStage(ctx, "N0003", notice.StageRD1, asOf, Recipient{})
		s.Require().NoError(err)
		later := asOf.Add(6 * time.Hour)
		_, err = s.engine.AdvanceStage(ctx, "N0003", notice.StageRD1, later, Recipient{})
		s.Require().NoError(err)

		records, err := s.trackings.ListByNotice(ctx, "N0003")
		s.Require().NoError(err)
		s.Len(records, 1)
	})

	s.Run("missing notice is a logged skip, not an error", func() {
		s.SetupTest()

		outcome, err := s.engine.AdvanceStage(ctx, "NOPE", notice.StageRD1, asOf, Recipient{})
		s.NoError(err)
		s.Nil(outcome)
	})

	s.Run("suspended notice is frozen with no mutation", func() {
		s.SetupTest()
		n := s.seedNotice("N0004", notice.StageRD2)
		suspDate := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
		n.SuspensionType = notice.SuspensionTemporary
		n.EPRReasonOfSuspension = "OLD"
		n.EPRDateOfSuspension = &suspDate
		s.Require().NoError(s.notices.Update(ctx, n))

		outcome, err := s.engine.AdvanceStage(ctx, "N0004", notice.StageRD2, asOf, Recipient{})
		s.Require().NoError(err)
		s.True(outcome.Frozen)

		stored, err := s.notices.FindByNo(ctx, "N0004")
		s.Require().NoError(err)
		s.Equal(notice.StageENA, stored.LastProcessingStage)
		s.Equal(notice.StageRD2, stored.NextProcessingStage)
	})

	s.Run("unmapped stage falls back to the terminal stage", func() {
		s.SetupTest()
		s.seedNotice("N0005", notice.StageRR3)

		outcome, err := s.engine.AdvanceStage(ctx, "N0005", notice.StageRR3, asOf, Recipient{})
		s.Require().NoError(err)
		s.Equal(notice.StageCPC, outcome.Notice.NextProcessingStage)
	})

	s.Run("tracking append failure leaves the notice unadvanced", func() {
		s.SetupTest()
		s.seedNotice("N0006", notice.StageRD1)

		log := testLogger()
		m := metrics.NewWith(prometheus.NewRegistry())
		src := refdata.Static(testSnapshot())
		suspender := suspension.NewService(s.notices, s.history, src, m, log)
		broken := New(s.notices, &failingTrackings{}, src, suspender, m, log)

		_, err := broken.AdvanceStage(ctx, "N0006", notice.StageRD1, asOf, Recipient{Name: "TAN AH KOW"})
		s.Require().Error(err)

		stored, err := s.notices.FindByNo(ctx, "N0006")
		s.Require().NoError(err)
		s.Equal(notice.StageENA, stored.LastProcessingStage)
		s.Equal(notice.StageRD1, stored.NextProcessingStage)
		s.Equal(notice.SyncClean, stored.IsSync)
	})

	s.Run("advancing to the terminal stage closes without a letter", func() {
		s.SetupTest()
		n := s.seedNotice("N0007", notice.StageCPC)
		fee := decimal.RequireFromString("20.00")
		n.AdministrationFee = decimal.NullDecimal{Decimal: fee, Valid: true}
		n.AmountPayable = decimal.RequireFromString("90.00")
		s.Require().NoError(s.notices.Update(ctx, n))

		outcome, err := s.engine.AdvanceStage(ctx, "N0007", notice.StageCPC, asOf, Recipient{})
		s.Require().NoError(err)
		s.Nil(outcome.Tracking)

		stored, err := s.notices.FindByNo(ctx, "N0007")
		s.Require().NoError(err)
		s.Equal(notice.StageCPC, stored.LastProcessingStage)
		s.Empty(stored.NextProcessingStage)
		s.True(stored.NextProcessingDate.IsZero())
		// Closing does not recompute money.
		s.Require().True(stored.AdministrationFee.Valid)
		s.True(stored.AdministrationFee.Decimal.Equal(fee))
		s.True(stored.AmountPayable.Equal(decimal.RequireFromString("90.00")))

		records, err := s.trackings.ListByNotice(ctx, "N0007")
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("invalid target stage is rejected", func() {
		s.SetupTest()
		_, err := s.engine.AdvanceStage(ctx, "N0001", "XXX", asOf, Recipient{})
		s.Error(err)
	})
}

// failingTrackings simulates an unavailable tracking table.
type failingTrackings struct{}

func (f *failingTrackings) Append(context.Context, *tracking.Record) (bool, error) {
	return false, errors.New("tracking table unavailable")
}

func (f *failingTrackings) ListByNotice(context.Context, notice.NoticeNo) ([]*tracking.Record, error) {
	return nil, errors.New("tracking table unavailable")
}

func (f *failingTrackings) FindByDay(context.Context, notice.NoticeNo, notice.StageGroup, time.Time) (*tracking.Record, error) {
	return nil, errors.New("tracking table unavailable")
}

func (s *EngineSuite) TestAdvisoryHold() {
	ctx := context.Background()
	asOf := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	s.Run("ANL holds the notice instead of advancing", func() {
		s.SetupTest()
		s.seedNotice("N0010", notice.StageANL)

		outcome, err := s.engine.AdvanceStage(ctx, "N0010", notice.StageANL, asOf, Recipient{})
		s.Require().NoError(err)
		s.True(outcome.Held)

		n := outcome.Notice
		s.Equal(notice.SuspensionPermanent, n.SuspensionType)
		s.Equal(AdvisoryHoldReason, n.EPRReasonOfSuspension)
		// Stage pointers stay where they were.
		s.Equal(notice.StageENA, n.LastProcessingStage)
		s.Equal(notice.StageANL, n.NextProcessingStage)

		records, err := s.history.ListByNotice(ctx, "N0010")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(suspension.SystemAuthorizer, records[0].Authorizer)
	})
}
