package syncer

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
)

// flakyTarget fails the first failures calls, then applies.
type flakyTarget struct {
	failures int
	calls    int
	applied  []DerivedFields
}

func (t *flakyTarget) Apply(_ context.Context, fields DerivedFields) error {
	t.calls++
	if t.calls <= t.failures {
		return errors.New("replica unavailable")
	}
	t.applied = append(t.applied, fields)
	return nil
}

type SyncerSuite struct {
	suite.Suite
	notices *notice.InMemoryStore
}

func TestSyncerSuite(t *testing.T) {
	suite.Run(t, new(SyncerSuite))
}

func (s *SyncerSuite) SetupTest() {
	s.notices = notice.NewInMemory()
}

func (s *SyncerSuite) newSyncer(target Target) *Syncer {
	log := logrus.New()
	log.SetOutput(io.Discard)
	sync := New(s.notices, target, metrics.NewWith(prometheus.NewRegistry()), log)
	sync.baseWait = time.Millisecond
	return sync
}

func (s *SyncerSuite) seedDirty(no notice.NoticeNo) *notice.Notice {
	due := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	n := &notice.Notice{
		NoticeNo:            no,
		LastProcessingStage: notice.StageRD1,
		NextProcessingStage: notice.StageRD2,
		CompositionAmount:   decimal.RequireFromString("70.00"),
		AmountPayable:       decimal.RequireFromString("70.00"),
		SuspensionType:      notice.SuspensionTemporary,
		EPRReasonOfSuspension: "OLD",
		DueDateOfRevival:    &due,
		IsSync:              notice.SyncDirty,
	}
	s.Require().NoError(s.notices.Save(context.Background(), n))
	return n
}

func (s *SyncerSuite) TestSyncDerived() {
	ctx := context.Background()

	s.Run("successful sync clears the dirty flag", func() {
		s.SetupTest()
		n := s.seedDirty("N4001")
		target := &flakyTarget{}

		err := s.newSyncer(target).SyncDerived(ctx, n)
		s.Require().NoError(err)
		s.Require().Len(target.applied, 1)

		fields := target.applied[0]
		s.Equal("70.00", fields.AmountPayable)
		s.Equal("2025-01-31", fields.DueDateOfRevival)
		s.Equal("OLD", fields.EPRReason)

		stored, err := s.notices.FindByNo(ctx, "N4001")
		s.Require().NoError(err)
		s.Equal(notice.SyncClean, stored.IsSync)
	})

	s.Run("transient failure is retried within the attempt budget", func() {
		s.SetupTest()
		n := s.seedDirty("N4002")
		target := &flakyTarget{failures: 2}

		err := s.newSyncer(target).SyncDerived(ctx, n)
		s.Require().NoError(err)
		s.Equal(3, target.calls)

		stored, err := s.notices.FindByNo(ctx, "N4002")
		s.Require().NoError(err)
		s.Equal(notice.SyncClean, stored.IsSync)
	})

	s.Run("exhausted retries leave the notice dirty", func() {
		s.SetupTest()
		n := s.seedDirty("N4003")
		target := &flakyTarget{failures: 10}

		err := s.newSyncer(target).SyncDerived(ctx, n)
		s.Require().Error(err)
		s.Equal(3, target.calls)

		stored, err := s.notices.FindByNo(ctx, "N4003")
		s.Require().NoError(err)
		s.Equal(notice.SyncDirty, stored.IsSync)
	})

	s.Run("nil target is a no-op that keeps the dirty flag", func() {
		s.SetupTest()
		n := s.seedDirty("N4004")

		err := s.newSyncer(nil).SyncDerived(ctx, n)
		s.Require().NoError(err)

		stored, err := s.notices.FindByNo(ctx, "N4004")
		s.Require().NoError(err)
		s.Equal(notice.SyncDirty, stored.IsSync)
	})
}

func (s *SyncerSuite) TestSweeper() {
	ctx := context.Background()

	s.Run("sweep retries every dirty notice once", func() {
		s.SetupTest()
		s.seedDirty("N4101")
		s.seedDirty("N4102")

		target := &flakyTarget{}
		sync := s.newSyncer(target)
		log := logrus.New()
		log.SetOutput(io.Discard)
		sweeper := NewSweeper(s.notices, sync, 100, log)

		s.Require().NoError(sweeper.Run(ctx))
		s.Len(target.applied, 2)

		dirty, err := s.notices.ListDirty(ctx, 100)
		s.Require().NoError(err)
		s.Empty(dirty)
	})

	s.Run("failed notices stay dirty for the next sweep", func() {
		s.SetupTest()
		s.seedDirty("N4103")

		target := &flakyTarget{failures: 1000}
		sync := s.newSyncer(target)
		log := logrus.New()
		log.SetOutput(io.Discard)
		sweeper := NewSweeper(s.notices, sync, 100, log)

		s.Require().NoError(sweeper.Run(ctx))

		dirty, err := s.notices.ListDirty(ctx, 100)
		s.Require().NoError(err)
		s.Len(dirty, 1)
	})
}

func TestDerive(t *testing.T) {
	n := &notice.Notice{
		NoticeNo:            "N4201",
		LastProcessingStage: notice.StageRR3,
		NextProcessingStage: notice.StageDN1,
		AmountPayable:       decimal.RequireFromString("120.00"),
		MessageCode:         "M01",
	}
	fields := Derive(n)
	if fields.AmountPayable != "120.00" {
		t.Errorf("amount payable = %q, want 120.00", fields.AmountPayable)
	}
	if fields.DueDateOfRevival != "" {
		t.Errorf("due date = %q, want empty", fields.DueDateOfRevival)
	}
}
