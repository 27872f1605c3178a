package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"SendPlan/internal/models"
)

// MemoryStore is an in-process JobStore with the same guarded-write
// semantics as the Postgres implementation. Tests run the scheduler
// against it instead of a live database.
type MemoryStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.ScheduledEmailJob
	configs map[int64]*models.EmailConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[uuid.UUID]*models.ScheduledEmailJob),
		configs: make(map[int64]*models.EmailConfig),
	}
}

func (s *MemoryStore) SaveConfig(_ context.Context, clientID int64, cfg *models.EmailConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[clientID] = cfg
	return nil
}

func (s *MemoryStore) GetConfig(_ context.Context, clientID int64) (*models.EmailConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg, nil
}

func (s *MemoryStore) DeleteConfig(_ context.Context, clientID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, clientID)
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, job *models.ScheduledEmailJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.ScheduledEmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(job), nil
}

func (s *MemoryStore) UpdateIfStatus(_ context.Context, id uuid.UUID, expected, next models.JobStatus, upd TerminalUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != expected {
		return false, nil
	}
	job.Status = next
	if upd.SentAt != nil {
		job.SentAt = upd.SentAt
	}
	if upd.FailedReason != "" {
		job.FailedReason = upd.FailedReason
	}
	return true, nil
}

func (s *MemoryStore) SelectDue(_ context.Context, now time.Time, limit int) ([]*models.ScheduledEmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*models.ScheduledEmailJob
	for _, job := range s.jobs {
		if job.Status == models.StatusPending && !job.ScheduledAt.After(now) {
			due = append(due, copyJob(job))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) CancelAllPending(_ context.Context, clientID int64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAllPendingLocked(clientID), nil
}

func (s *MemoryStore) cancelAllPendingLocked(clientID int64) []uuid.UUID {
	var ids []uuid.UUID
	for _, job := range s.jobs {
		if job.ClientID == clientID && job.Status == models.StatusPending {
			job.Status = models.StatusCancelled
			ids = append(ids, job.ID)
		}
	}
	return ids
}

func (s *MemoryStore) ReplacePending(_ context.Context, clientID int64, jobs []*models.ScheduledEmailJob) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := s.cancelAllPendingLocked(clientID)
	for _, job := range jobs {
		s.jobs[job.ID] = copyJob(job)
	}
	return cancelled, nil
}

func (s *MemoryStore) ListByClient(_ context.Context, clientID int64, status models.JobStatus, limit, offset int) ([]*models.ScheduledEmailJob, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.ScheduledEmailJob
	for _, job := range s.jobs {
		if job.ClientID != clientID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		all = append(all, copyJob(job))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledAt.After(all[j].ScheduledAt) })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func copyJob(job *models.ScheduledEmailJob) *models.ScheduledEmailJob {
	c := *job
	c.Recipients = append([]string(nil), job.Recipients...)
	return &c
}
