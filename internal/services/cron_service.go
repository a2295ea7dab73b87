package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// LockSweeper expires stale seat locks in bulk.
type LockSweeper interface {
	ExpireStaleLocks(now time.Time) (int, error)
}

// CronService runs the periodic expired-hold sweep. Expired holds are
// already invisible to readers; the sweep only settles their stored
// status so the locks table stays queryable by status.
type CronService struct {
	cron     *cron.Cron
	sweeper  LockSweeper
	schedule string
	clock    Clock
	logger   *logrus.Logger
}

func NewCronService(sweeper LockSweeper, schedule string, clock Clock, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:     cron.New(cron.WithSeconds()),
		sweeper:  sweeper,
		schedule: schedule,
		clock:    clock,
		logger:   logger,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Hold sweep scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Hold sweep scheduler stopped")
}

func (s *CronService) sweep() {
	swept, err := s.sweeper.ExpireStaleLocks(s.clock.Now())
	if err != nil {
		s.logger.WithError(err).Error("Hold sweep failed")
		return
	}
	if swept > 0 {
		s.logger.WithField("count", swept).Info("Expired holds swept")
	}
}
