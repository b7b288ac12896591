package syncer

import (
	"context"

	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
)

// Sweeper retries notices whose replica sync previously failed. It runs from
// the cron schedule, out of band of the stage batches.
type Sweeper struct {
	notices   notice.Store
	syncer    *Syncer
	batchSize int
	log       *logrus.Logger
}

func NewSweeper(notices notice.Store, s *Syncer, batchSize int, log *logrus.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{notices: notices, syncer: s, batchSize: batchSize, log: log}
}

// Run pushes every dirty notice once. Failures stay dirty for the next sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	dirty, err := s.notices.ListDirty(ctx, s.batchSize)
	if err != nil {
		return err
	}
	if len(dirty) == 0 {
		return nil
	}

	synced := 0
	for _, n := range dirty {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.syncer.SyncDerived(ctx, n); err == nil {
			synced++
		}
	}

	s.log.WithFields(logrus.Fields{
		"dirty":  len(dirty),
		"synced": synced,
	}).Info("dirty sweep completed")
	return nil
}
