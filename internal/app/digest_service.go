// internal/app/digest_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"financial_digest/internal/domain/advisor"
	"financial_digest/internal/domain/digest"
	"financial_digest/internal/domain/masking"
	"financial_digest/internal/domain/notification"
)

const defaultConcurrency = 4

// ErrInvalidHistoryWindow is returned by History for a non-positive window.
var ErrInvalidHistoryWindow = errors.New("history window must be at least one day")

// RunOptions controls one digest run.
type RunOptions struct {
	Date  time.Time
	Force bool // rebuild and resend digests already in history
}

// DigestServiceDeps groups the collaborators of DigestService. Insights,
// Mailer, Notifier and Reporter are optional. Without a Mailer a run is a
// dry run: digests are built and rendered but not recorded in history.
type DigestServiceDeps struct {
	Source   RecordSource
	Advisors advisor.Repository
	History  digest.HistoryRepository
	Masker   *masking.Masker
	Insights InsightGenerator
	Renderer Renderer
	Mailer   Mailer
	Notifier UrgentNotifier
	Reporter RunReporter
}

// DigestService runs the daily pipeline: ingest, group, then per advisor
// build, mask, enrich, render, deliver and persist.
type DigestService struct {
	deps        DigestServiceDeps
	concurrency int
	logger      *logrus.Entry
	now         func() time.Time
}

func NewDigestService(deps DigestServiceDeps, concurrency int, logger *logrus.Entry) *DigestService {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &DigestService{
		deps:        deps,
		concurrency: concurrency,
		logger:      logger.WithField("component", "digest_service"),
		now:         time.Now,
	}
}

// Run executes one digest run for opts.Date. It fails only when the records
// cannot be fetched; per-advisor failures are recorded in the report.
func (s *DigestService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Date:      digest.Day(opts.Date),
		Forced:    opts.Force,
		StartedAt: s.now(),
	}
	log := s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "date": digest.DateKey(report.Date)})
	log.WithField("force", opts.Force).Info("Starting digest run")

	records, err := s.deps.Source.Fetch(ctx, report.Date)
	if err != nil {
		log.WithError(err).Error("Failed to fetch notification records")
		return nil, fmt.Errorf("failed to fetch records for %s: %w", digest.DateKey(report.Date), err)
	}

	ingested := notification.Ingest(records)
	report.Records = len(records)
	report.Accepted = len(ingested.Notifications)
	report.Rejected = ingested.Failures
	for _, ferr := range ingested.Failures {
		log.WithError(ferr).Warn("Rejected notification record")
	}

	groups := digest.GroupByAdvisor(ingested.Notifications)
	ids := digest.AdvisorIDs(groups)
	log.Infof("Ingested %d of %d records for %d advisors", report.Accepted, report.Records, len(ids))

	directory, err := s.deps.Advisors.GetByIDs(ctx, ids)
	if err != nil {
		log.WithError(err).Warn("Advisor directory lookup failed, falling back to notification data")
		directory = map[string]*advisor.Advisor{}
	}

	report.Advisors = make([]AdvisorResult, len(ids))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			report.Advisors[i] = s.processAdvisor(ctx, log.WithField("advisor_id", id), opts, report.Date, id, directory[id], groups[id])
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = s.now()
	log.WithFields(logrus.Fields{
		"delivered": report.Count(StatusDelivered),
		"built":     report.Count(StatusBuilt),
		"skipped":   report.Count(StatusSkipped),
		"failed":    report.Count(StatusFailed),
		"rejected":  len(report.Rejected),
	}).Infof("Digest run finished in %s", report.Duration().Round(time.Millisecond))

	if s.deps.Reporter != nil {
		if err := s.deps.Reporter.Report(ctx, report); err != nil {
			log.WithError(err).Warn("Failed to publish run report")
		}
	}
	return report, nil
}

func (s *DigestService) processAdvisor(
	ctx context.Context,
	log *logrus.Entry,
	opts RunOptions,
	date time.Time,
	advisorID string,
	known *advisor.Advisor,
	ns []notification.Notification,
) AdvisorResult {
	res := AdvisorResult{AdvisorID: advisorID, Notifications: len(ns)}
	fail := func(stage string, err error) AdvisorResult {
		log.WithError(err).WithField("stage", stage).Error("Digest pipeline failed")
		res.Status, res.Stage, res.Err = StatusFailed, stage, err
		return res
	}

	if known != nil && !known.IsActive {
		log.Info("Advisor is inactive, skipping digest")
		res.Status, res.Stage = StatusSkipped, "inactive"
		return res
	}

	if !opts.Force {
		_, err := s.deps.History.Get(ctx, advisorID, date)
		switch {
		case err == nil:
			log.Info("Digest already sent for this date, skipping")
			res.Status, res.Stage = StatusSkipped, "already_sent"
			return res
		case !errors.Is(err, digest.ErrDigestNotFound):
			log.WithError(err).Warn("History lookup failed, building digest anyway")
		}
	}

	to := recipientFor(advisorID, known, ns)
	res.Email = to.Email

	d, err := digest.Build(to, date, ns)
	if err != nil {
		return fail("build", err)
	}

	if s.deps.Insights != nil {
		// The masked view must be complete before anything leaves the process.
		masked, err := s.deps.Masker.MaskJSON(d)
		if err != nil {
			return fail("mask", err)
		}
		enrichment, err := s.deps.Insights.Generate(ctx, masked)
		if err != nil {
			log.WithError(err).Warn("Insight generation failed, sending digest without insights")
		} else {
			d = d.WithInsights(enrichment)
			res.Enriched = true
		}
	}

	subject, html, text, err := s.deps.Renderer.Render(d)
	if err != nil {
		return fail("render", err)
	}

	if s.deps.Mailer == nil {
		log.WithField("subject", subject).Info("No mailer configured, digest built but not sent")
		res.Status = StatusBuilt
		return res
	}
	if err := s.deps.Mailer.Send(ctx, to.Email, subject, html, text); err != nil {
		return fail("deliver", err)
	}
	res.Status = StatusDelivered

	// History records sent digests only, so the next run skips this advisor.
	if err := s.deps.History.Put(ctx, d); err != nil {
		log.WithError(err).Error("Failed to store digest history")
	} else {
		res.Persisted = true
	}

	if d.SummaryStats.HasUrgent && s.deps.Notifier != nil && known != nil && known.TelegramID.Valid {
		if err := s.deps.Notifier.NotifyUrgent(ctx, known.TelegramID.Int64, d); err != nil {
			log.WithError(err).Warn("Failed to send urgent notice on Telegram")
		} else {
			res.Notified = true
		}
	}

	log.WithFields(logrus.Fields{
		"status":        res.Status,
		"notifications": res.Notifications,
		"urgent":        d.SummaryStats.HasUrgent,
	}).Info("Digest processed")
	return res
}

// recipientFor prefers the directory entry and falls back to what the
// notifications carry.
func recipientFor(advisorID string, known *advisor.Advisor, ns []notification.Notification) digest.Recipient {
	to := digest.Recipient{ID: advisorID, Name: advisorID}
	if len(ns) > 0 {
		to.Email = ns[0].Common().AdvisorEmail
	}
	if known != nil {
		if known.Name != "" {
			to.Name = known.Name
		}
		if known.Email != "" {
			to.Email = known.Email
		}
	}
	return to
}

// History returns the advisor's stored digests of the last days days,
// today included, newest first.
func (s *DigestService) History(ctx context.Context, advisorID string, days int) ([]*digest.Digest, error) {
	if days < 1 {
		return nil, ErrInvalidHistoryWindow
	}
	to := digest.Day(s.now())
	from := to.AddDate(0, 0, -(days - 1))
	digests, err := s.deps.History.ListByAdvisor(ctx, advisorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest history for %s: %w", advisorID, err)
	}
	return digests, nil
}
