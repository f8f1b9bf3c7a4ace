package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner is the monitoring entrypoint triggered on every tick.
type CycleRunner interface {
	RunCycle(ctx context.Context)
}

// MonitorScheduler drives the periodic monitoring sweep on a fixed cadence.
type MonitorScheduler struct {
	cronEngine   *cron.Cron
	monitor      CycleRunner
	logger       *logrus.Entry
	pollSpec     string
	sweepTimeout time.Duration
}

func NewMonitorScheduler(
	monitor CycleRunner,
	logger *logrus.Entry,
	pollSpec string, // e.g. "@every 10m"
	sweepTimeout time.Duration,
) *MonitorScheduler {
	return &MonitorScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		monitor:      monitor,
		logger:       logger,
		pollSpec:     pollSpec,
		sweepTimeout: sweepTimeout,
	}
}

func (s *MonitorScheduler) Start() error {
	s.logger.Info("Starting monitor scheduler...")

	_, err := s.cronEngine.AddFunc(s.pollSpec, func() {
		s.logger.Debug("Cron tick, starting monitoring sweep")
		ctx, cancel := context.WithTimeout(context.Background(), s.sweepTimeout)
		defer cancel()
		s.monitor.RunCycle(ctx)
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithField("poll_spec", s.pollSpec).Info("Monitor scheduler started")
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish its
// current work rather than cancelling it mid-cycle.
func (s *MonitorScheduler) Stop() {
	s.logger.Info("Stopping monitor scheduler...")
	ctx := s.cronEngine.Stop() // No new jobs; running jobs keep going.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Monitor scheduler gracefully stopped")
}
