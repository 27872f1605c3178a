package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusSent      JobStatus = "sent"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is an end state. Terminal rows are never
// mutated again; they are kept for audit history.
func (s JobStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

// ScheduledEmailJob is one planned send. ScheduledAt is fixed at creation;
// superseding a schedule cancels the row and inserts a new one rather than
// moving the time.
type ScheduledEmailJob struct {
	ID         uuid.UUID `json:"id"`
	ClientID   int64     `json:"client_id"`
	TemplateID int64     `json:"template_id"`
	Recipients []string  `json:"recipients"`

	ScheduledAt time.Time `json:"scheduled_at"`
	Status      JobStatus `json:"status"`

	IsRecurring   bool       `json:"is_recurring"`
	RecurrenceEnd *time.Time `json:"recurrence_end,omitempty"`

	SentAt       *time.Time `json:"sent_at,omitempty"`
	FailedReason string     `json:"failed_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewScheduledEmailJob builds a pending job with a fresh id.
func NewScheduledEmailJob(clientID, templateID int64, recipients []string, scheduledAt time.Time) *ScheduledEmailJob {
	return &ScheduledEmailJob{
		ID:          uuid.New(),
		ClientID:    clientID,
		TemplateID:  templateID,
		Recipients:  recipients,
		ScheduledAt: scheduledAt,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// NextOccurrence returns the follow-up job for a recurring schedule, one day
// after this one, or nil when the recurrence end date has passed.
func (j *ScheduledEmailJob) NextOccurrence() *ScheduledEmailJob {
	if !j.IsRecurring {
		return nil
	}
	next := j.ScheduledAt.Add(24 * time.Hour)
	if j.RecurrenceEnd != nil && next.After(*j.RecurrenceEnd) {
		return nil
	}
	n := NewScheduledEmailJob(j.ClientID, j.TemplateID, j.Recipients, next)
	n.IsRecurring = true
	n.RecurrenceEnd = j.RecurrenceEnd
	return n
}
