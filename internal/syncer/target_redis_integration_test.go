//go:build integration

package syncer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"noticeflow/internal/notice"
	platformredis "noticeflow/internal/platform/redis"
	"noticeflow/internal/syncer"
	"noticeflow/pkg/testutil/containers"
)

type RedisTargetSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	target *syncer.RedisTarget
}

func TestRedisTargetSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTargetSuite))
}

func (s *RedisTargetSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.target = syncer.NewRedisTarget(&platformredis.Client{Client: s.redis.Client})
}

func (s *RedisTargetSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTargetSuite) TestApply() {
	ctx := context.Background()

	fields := syncer.DerivedFields{
		NoticeNo:            "NR0001",
		LastProcessingStage: notice.StageRD1,
		NextProcessingStage: notice.StageRD2,
		AmountPayable:       "70.00",
		SuspensionType:      notice.SuspensionTemporary,
		EPRReason:           "OLD",
		DueDateOfRevival:    "2025-01-31",
		MessageCode:         "M01",
	}

	s.Run("derived fields land as a hash per notice", func() {
		s.Require().NoError(s.target.Apply(ctx, fields))

		got, err := s.redis.Client.HGetAll(ctx, "notice:NR0001").Result()
		s.Require().NoError(err)
		s.Equal("RD1", got["last_stage"])
		s.Equal("RD2", got["next_stage"])
		s.Equal("70.00", got["amount_payable"])
		s.Equal("TS", got["suspension_type"])
		s.Equal("OLD", got["epr_reason"])
		s.Equal("2025-01-31", got["due_date_of_revival"])
		s.Equal("false", got["payment_accepted"])
	})

	s.Run("re-applying overwrites in place", func() {
		s.Require().NoError(s.target.Apply(ctx, fields))

		updated := fields
		updated.SuspensionType = ""
		updated.EPRReason = ""
		updated.DueDateOfRevival = ""
		s.Require().NoError(s.target.Apply(ctx, updated))

		got, err := s.redis.Client.HGetAll(ctx, "notice:NR0001").Result()
		s.Require().NoError(err)
		s.Equal("", got["suspension_type"])
		s.Equal("", got["epr_reason"])
	})
}
