package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"financial_digest/internal/app"
)

const defaultRunTimeout = 30 * time.Minute

// DigestRunner is the part of the digest service the scheduler drives.
type DigestRunner interface {
	Run(ctx context.Context, opts app.RunOptions) (*app.RunReport, error)
}

type DigestScheduler struct {
	cronEngine     *cron.Cron
	runner         DigestRunner
	logger         *logrus.Entry
	cronSpecDigest string
	runTimeout     time.Duration
	now            func() time.Time
}

func NewDigestScheduler(
	runner DigestRunner,
	logger *logrus.Entry,
	cronSpecDigest string, // e.g., "0 7 * * 1-5" (7:00 AM on weekdays)
) *DigestScheduler {
	return &DigestScheduler{
		cronEngine:     cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		runner:         runner,
		logger:         logger.WithField("component", "scheduler"),
		cronSpecDigest: cronSpecDigest,
		runTimeout:     defaultRunTimeout,
		now:            time.Now,
	}
}

// Start registers the daily digest job and starts the cron engine.
func (s *DigestScheduler) Start() error {
	s.logger.Info("Starting digest scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecDigest, s.runDailyDigest); err != nil {
		return fmt.Errorf("could not add daily digest cron job %q: %w", s.cronSpecDigest, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpecDigest).Info("Digest scheduler started.")
	return nil
}

func (s *DigestScheduler) runDailyDigest() {
	s.logger.Info("Cron job triggered for daily digest.")
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx, app.RunOptions{Date: s.now()})
	if err != nil {
		s.logger.WithError(err).Error("Daily digest run failed")
		return
	}
	s.logger.WithField("run_id", report.RunID).Info("Daily digest run completed.")
}

func (s *DigestScheduler) Stop() {
	s.logger.Info("Stopping digest scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Digest scheduler gracefully stopped.")
}
