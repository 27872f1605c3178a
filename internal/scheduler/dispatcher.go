package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"SendPlan/internal/email"
	"SendPlan/internal/metrics"
	"SendPlan/internal/models"
	"SendPlan/internal/store"
)

// Outcome is what one dispatch attempt amounted to. Skipped covers every
// lost race: the job was cancelled, already sent by another worker, or the
// guarded terminal write found the row no longer pending.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Dispatcher takes one due job through reload, guard, send and the guarded
// terminal write. It never trusts the snapshot that made the job look due.
type Dispatcher struct {
	store       store.JobStore
	transport   email.Transport
	templates   email.TemplateSource
	sendTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewDispatcher(
	st store.JobStore,
	transport email.Transport,
	templates email.TemplateSource,
	sendTimeout time.Duration,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:       st,
		transport:   transport,
		templates:   templates,
		sendTimeout: sendTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// Dispatch processes one job by id. The returned error covers store
// breakage only; send failures and lost races are outcomes, not errors,
// and must never abort the rest of a batch.
func (d *Dispatcher) Dispatch(ctx context.Context, id uuid.UUID) (Outcome, error) {
	timer := prometheus.NewTimer(metrics.DispatchDuration)
	defer timer.ObserveDuration()

	job, err := d.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			d.log.Warn("job vanished before dispatch", zap.String("job_id", id.String()))
			metrics.JobsSkipped.Inc()
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, err
	}

	log := d.log.With(
		zap.String("job_id", job.ID.String()),
		zap.Int64("client_id", job.ClientID),
	)

	if job.Status != models.StatusPending {
		log.Info("dispatch skipped, job no longer pending",
			zap.String("status", string(job.Status)))
		metrics.JobsSkipped.Inc()
		return OutcomeSkipped, nil
	}

	log.Info("send started",
		zap.Int64("template_id", job.TemplateID),
		zap.Int("recipients", len(job.Recipients)))
	metrics.SendsStarted.Inc()

	subject, body, err := d.render(ctx, job)
	if err != nil {
		return d.resolveFailed(ctx, job, err.Error(), log)
	}

	var sendErrors []string
	for _, recipient := range job.Recipients {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := d.transport.Send(sendCtx, recipient, subject, body)
		cancel()
		if err != nil {
			log.Error("recipient send failed",
				zap.String("recipient", recipient), zap.Error(err))
			sendErrors = append(sendErrors, err.Error())
		}
	}

	// Failed only when every recipient failed. A partial failure still
	// counts as sent, with the per-recipient errors recorded.
	if len(sendErrors) == len(job.Recipients) {
		return d.resolveFailed(ctx, job, strings.Join(sendErrors, "; "), log)
	}
	return d.resolveSent(ctx, job, sendErrors, log)
}

func (d *Dispatcher) render(ctx context.Context, job *models.ScheduledEmailJob) (subject, body string, err error) {
	tmpl, err := d.templates.TemplateByID(ctx, job.TemplateID)
	if err != nil {
		return "", "", err
	}
	vars := email.BaseVars(d.now(), job.ScheduledAt)
	vars["service_name"] = tmpl.Name
	subject, body = email.RenderTemplate(tmpl, vars)
	return subject, body, nil
}

func (d *Dispatcher) resolveSent(ctx context.Context, job *models.ScheduledEmailJob, partialErrors []string, log *zap.Logger) (Outcome, error) {
	sentAt := d.now()
	applied, err := d.store.UpdateIfStatus(ctx, job.ID, models.StatusPending, models.StatusSent, store.TerminalUpdate{
		SentAt:       &sentAt,
		FailedReason: strings.Join(partialErrors, "; "),
	})
	if err != nil {
		return OutcomeSkipped, err
	}
	if !applied {
		// Lost the race at write time. The mail may already be out, which
		// is the accepted cost of at-least-once dispatch; the row keeps
		// whatever terminal state won.
		log.Info("terminal write lost race, outcome discarded")
		metrics.JobsSkipped.Inc()
		return OutcomeSkipped, nil
	}

	log.Info("job sent",
		zap.Time("sent_at", sentAt),
		zap.Int("failed_recipients", len(partialErrors)))
	metrics.JobsSent.Inc()

	d.scheduleNextOccurrence(ctx, job, log)
	return OutcomeSent, nil
}

func (d *Dispatcher) resolveFailed(ctx context.Context, job *models.ScheduledEmailJob, reason string, log *zap.Logger) (Outcome, error) {
	applied, err := d.store.UpdateIfStatus(ctx, job.ID, models.StatusPending, models.StatusFailed, store.TerminalUpdate{
		FailedReason: reason,
	})
	if err != nil {
		return OutcomeSkipped, err
	}
	if !applied {
		log.Info("terminal write lost race, outcome discarded")
		metrics.JobsSkipped.Inc()
		return OutcomeSkipped, nil
	}

	// No automatic retry: the job stays failed until an operator saves the
	// configuration again and produces a fresh one.
	log.Warn("job failed", zap.String("reason", reason))
	metrics.JobsFailed.Inc()
	return OutcomeFailed, nil
}

func (d *Dispatcher) scheduleNextOccurrence(ctx context.Context, job *models.ScheduledEmailJob, log *zap.Logger) {
	next := job.NextOccurrence()
	if next == nil {
		return
	}
	if err := d.store.Insert(ctx, next); err != nil {
		log.Error("failed to create next recurring job", zap.Error(err))
		return
	}
	log.Info("next recurring job created",
		zap.String("next_job_id", next.ID.String()),
		zap.Time("scheduled_at", next.ScheduledAt))
	metrics.JobsCreated.Inc()
}
