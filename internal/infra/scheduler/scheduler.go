package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const digestJobTimeout = 5 * time.Minute

// DigestSender delivers the action-required digest to every tenant with a chat.
type DigestSender interface {
	SendDailyDigests(ctx context.Context) error
}

type DigestScheduler struct {
	cronEngine *cron.Cron
	digests    DigestSender
	logger     *logrus.Entry
	cronSpec   string
}

func NewDigestScheduler(digests DigestSender, logger *logrus.Entry, cronSpec string, loc *time.Location) *DigestScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DigestScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		digests:    digests,
		logger:     logger.WithField("job", "daily_digest"),
		cronSpec:   cronSpec,
	}
}

func (s *DigestScheduler) Start() error {
	s.logger.Info("Starting digest scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.RunDigest); err != nil {
		return fmt.Errorf("could not add digest cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Digest scheduler started.")
	return nil
}

// RunDigest executes one digest round. Failures are logged; the next tick retries.
func (s *DigestScheduler) RunDigest() {
	s.logger.Info("Cron job triggered for daily digest.")
	ctx, cancel := context.WithTimeout(context.Background(), digestJobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.digests.SendDailyDigests(ctx); err != nil {
		s.logger.WithError(err).Error("Daily digest finished with errors")
		return
	}
	s.logger.WithField("took", time.Since(start).String()).Info("Daily digest finished.")
}

func (s *DigestScheduler) Stop() {
	s.logger.Info("Stopping digest scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Digest scheduler gracefully stopped.")
}
