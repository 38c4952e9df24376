// Package jobs runs the periodic background work of the service.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job
// are skipped and panics are recovered.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
	log  logrus.FieldLogger
}

func NewScheduler(logger logrus.FieldLogger) *Scheduler {
	log := logger.WithField("component", "jobs")
	cronLog := cron.PrintfLogger(log)
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		)),
		ctx:  ctx,
		stop: stop,
		log:  log,
	}
}

// Add registers job under a standard cron spec or a descriptor such as
// "@every 1h"
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		entry := s.log.WithField("job", job.Name())
		if err := job.Run(s.ctx); err != nil {
			entry.WithError(err).Error("job failed")
			return
		}
		entry.Debug("job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.stop()
	<-s.cron.Stop().Done()
}
