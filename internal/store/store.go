package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"SendPlan/internal/models"
)

var ErrNotFound = errors.New("scheduled email job not found")

// TerminalUpdate carries the fields written together with a terminal
// status transition.
type TerminalUpdate struct {
	SentAt       *time.Time
	FailedReason string
}

// JobStore is the durable table of scheduled email jobs. It is the single
// source of truth: job state is never cached across poller ticks.
//
// UpdateIfStatus is the guarded write the whole design leans on. It applies
// the transition only if the row's status still equals expected at write
// time and reports whether the update landed, so concurrent dispatchers and
// config saves cannot overwrite a terminal state.
type JobStore interface {
	Insert(ctx context.Context, job *models.ScheduledEmailJob) error
	Get(ctx context.Context, id uuid.UUID) (*models.ScheduledEmailJob, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected, next models.JobStatus, upd TerminalUpdate) (bool, error)

	// SelectDue returns pending jobs with scheduled_at <= now, oldest first.
	SelectDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledEmailJob, error)

	// CancelAllPending retires every pending job of a client and returns the
	// cancelled ids for auditing. Terminal rows are untouched.
	CancelAllPending(ctx context.Context, clientID int64) ([]uuid.UUID, error)

	// ReplacePending atomically cancels a client's pending lineage and
	// inserts its replacement. Either both steps are visible or neither.
	ReplacePending(ctx context.Context, clientID int64, jobs []*models.ScheduledEmailJob) ([]uuid.UUID, error)

	// ListByClient is the read-only projection used by the API. An empty
	// status matches all statuses; a non-positive limit means no limit.
	// Returns the page and the total count.
	ListByClient(ctx context.Context, clientID int64, status models.JobStatus, limit, offset int) ([]*models.ScheduledEmailJob, int, error)
}
