package configwriter

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"SendPlan/internal/metrics"
	"SendPlan/internal/models"
	"SendPlan/internal/store"
)

// Writer turns a client's email configuration into the authoritative set of
// future sends. Saving a configuration always supersedes the previous
// pending lineage, even when the config is unchanged; jobs that already
// reached a terminal state are never touched.
type Writer struct {
	store store.JobStore
	log   *zap.Logger

	// Now is the clock used for validation and expansion, overridable in
	// tests.
	Now func() time.Time
}

func NewWriter(st store.JobStore, log *zap.Logger) *Writer {
	return &Writer{
		store: st,
		log:   log,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Result reports what one ApplyConfig call did, for auditing.
type Result struct {
	Created      []*models.ScheduledEmailJob
	CancelledIDs []uuid.UUID
}

// ApplyConfig validates cfg, cancels every pending job of the client and
// inserts the jobs the new configuration implies, as one atomic unit.
// Validation failures reject synchronously with no jobs created or
// cancelled.
func (w *Writer) ApplyConfig(ctx context.Context, clientID int64, cfg *models.EmailConfig) (*Result, error) {
	now := w.Now()
	if err := cfg.Validate(now); err != nil {
		return nil, err
	}

	jobs := ExpandJobs(clientID, cfg, now)

	cancelled, err := w.store.ReplacePending(ctx, clientID, jobs)
	if err != nil {
		return nil, fmt.Errorf("apply config for client %d: %w", clientID, err)
	}

	for _, id := range cancelled {
		w.log.Info("job cancelled",
			zap.String("job_id", id.String()),
			zap.Int64("client_id", clientID))
		metrics.JobsCancelled.Inc()
	}
	for _, job := range jobs {
		w.log.Info("job created",
			zap.String("job_id", job.ID.String()),
			zap.Int64("client_id", clientID),
			zap.Int64("template_id", job.TemplateID),
			zap.Time("scheduled_at", job.ScheduledAt),
			zap.Bool("recurring", job.IsRecurring))
		metrics.JobsCreated.Inc()
	}

	return &Result{Created: jobs, CancelledIDs: cancelled}, nil
}

// CancelAll retires every pending job of a client, used when the
// configuration itself is deleted.
func (w *Writer) CancelAll(ctx context.Context, clientID int64) ([]uuid.UUID, error) {
	cancelled, err := w.store.CancelAllPending(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for _, id := range cancelled {
		w.log.Info("job cancelled",
			zap.String("job_id", id.String()),
			zap.Int64("client_id", clientID))
		metrics.JobsCancelled.Inc()
	}
	return cancelled, nil
}

// CancelJob cancels one pending job. Cancelling a job that already reached
// a terminal state is a no-op; the guarded write guarantees a sent row is
// never altered. Returns whether the cancellation applied.
func (w *Writer) CancelJob(ctx context.Context, clientID int64, jobID uuid.UUID) (bool, error) {
	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.ClientID != clientID {
		return false, store.ErrNotFound
	}
	applied, err := w.store.UpdateIfStatus(ctx, jobID, models.StatusPending, models.StatusCancelled, store.TerminalUpdate{})
	if err != nil {
		return false, err
	}
	if applied {
		w.log.Info("job cancelled",
			zap.String("job_id", jobID.String()),
			zap.Int64("client_id", clientID))
		metrics.JobsCancelled.Inc()
	}
	return applied, nil
}

// ScheduleTestEmail creates one job with an explicit due offset, used to
// verify delivery end to end without waiting for a real schedule.
func (w *Writer) ScheduleTestEmail(ctx context.Context, clientID, templateID int64, recipients []string, dueIn time.Duration) (*models.ScheduledEmailJob, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", models.ErrInvalidConfig)
	}
	for _, r := range recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return nil, fmt.Errorf("%w: invalid recipient %q", models.ErrInvalidConfig, r)
		}
	}
	if templateID == 0 {
		return nil, fmt.Errorf("%w: templateId is required", models.ErrInvalidConfig)
	}

	job := models.NewScheduledEmailJob(clientID, templateID, recipients, w.Now().Add(dueIn))
	if err := w.store.Insert(ctx, job); err != nil {
		return nil, err
	}

	w.log.Info("job created",
		zap.String("job_id", job.ID.String()),
		zap.Int64("client_id", clientID),
		zap.Time("scheduled_at", job.ScheduledAt))
	metrics.JobsCreated.Inc()
	return job, nil
}

// ExpandJobs translates the schedule blocks of cfg into pending job rows.
// A service whose template has no subscribed recipients yields no jobs.
func ExpandJobs(clientID int64, cfg *models.EmailConfig, now time.Time) []*models.ScheduledEmailJob {
	var jobs []*models.ScheduledEmailJob
	for _, svc := range cfg.Services {
		if !svc.Enabled {
			continue
		}
		recipients := cfg.RecipientsFor(svc.TemplateID)
		if len(recipients) == 0 {
			continue
		}

		switch svc.DateType {
		case models.DateTypeSingle:
			for _, ts := range svc.ScheduledTimes {
				at := combine(*svc.ScheduledDate, ts)
				jobs = append(jobs, models.NewScheduledEmailJob(clientID, svc.TemplateID, recipients, at))
			}

		case models.DateTypeRange:
			for day := *svc.ScheduledFrom; !day.After(*svc.ScheduledTo); day = day.Add(24 * time.Hour) {
				for _, ts := range svc.ScheduledTimes {
					jobs = append(jobs, models.NewScheduledEmailJob(clientID, svc.TemplateID, recipients, combine(day, ts)))
				}
			}

		case models.DateTypeAll:
			// Daily with no end date: seed tomorrow's occurrence, the
			// dispatcher rolls the chain forward after each send.
			tomorrow := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
			for _, ts := range svc.ScheduledTimes {
				job := models.NewScheduledEmailJob(clientID, svc.TemplateID, recipients, combine(tomorrow, ts))
				job.IsRecurring = true
				jobs = append(jobs, job)
			}
		}
	}
	return jobs
}

func combine(day time.Time, hhmm string) time.Time {
	t, _ := time.Parse("15:04", hhmm) // validated before expansion
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}
