package batch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/syncer"
)

// DefaultStageOrder is the sequence of target stages a daily run drives.
// Notices are selected by their own nextProcessingStage, so running every
// stage each day only touches the notices actually due.
var DefaultStageOrder = []notice.Stage{
	notice.StageRD1, notice.StageRD2, notice.StageRR3,
	notice.StageDN1, notice.StageDN2, notice.StageDR3,
	notice.StageANL, notice.StageCPC,
}

// Scheduler wires the stage batches and the dirty sweep onto cron schedules.
type Scheduler struct {
	cronEngine *cron.Cron
	driver     *Driver
	sweeper    *syncer.Sweeper
	stages     []notice.Stage
	log        *logrus.Logger
}

func NewScheduler(driver *Driver, sweeper *syncer.Sweeper, stages []notice.Stage, log *logrus.Logger) *Scheduler {
	if len(stages) == 0 {
		stages = DefaultStageOrder
	}
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)),
		driver:     driver,
		sweeper:    sweeper,
		stages:     stages,
		log:        log,
	}
}

// Start registers the cron entries and starts the scheduler.
func (s *Scheduler) Start(stageSpec, sweepSpec string) error {
	_, err := s.cronEngine.AddFunc(stageSpec, func() {
		s.RunAllStages(context.Background(), time.Now())
	})
	if err != nil {
		return err
	}

	_, err = s.cronEngine.AddFunc(sweepSpec, func() {
		if err := s.sweeper.Run(context.Background()); err != nil {
			s.log.WithError(err).Warn("dirty sweep failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.log.WithFields(logrus.Fields{
		"stage_spec": stageSpec,
		"sweep_spec": sweepSpec,
	}).Info("batch scheduler started")
	return nil
}

// RunAllStages drives each configured stage once for runDate. Stage order
// matters only for log readability; candidate selection isolates the stages.
func (s *Scheduler) RunAllStages(ctx context.Context, runDate time.Time) {
	for _, stage := range s.stages {
		report, err := s.driver.RunStage(ctx, stage, runDate)
		if err != nil {
			s.log.WithField("stage", stage.String()).WithError(err).Error("stage batch failed")
			continue
		}
		if report.Total > 0 {
			s.log.WithFields(logrus.Fields{
				"stage":    stage.String(),
				"total":    report.Total,
				"advanced": report.Advanced,
			}).Info("stage run report")
		}
	}
}

// Stop halts the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
}
