package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"SendPlan/internal/models"
)

const jobColumns = `id, client_id, template_id, recipients, scheduled_at, status,
	is_recurring, recurrence_end, sent_at, failed_reason, created_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// statements run standalone and inside ReplacePending's transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements JobStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, job *models.ScheduledEmailJob) error {
	return insertJob(ctx, s.pool, job)
}

func insertJob(ctx context.Context, q querier, job *models.ScheduledEmailJob) error {
	recipientsJSON, err := json.Marshal(job.Recipients)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`INSERT INTO scheduled_emails
		 (id, client_id, template_id, recipients, scheduled_at, status,
		  is_recurring, recurrence_end, sent_at, failed_reason, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		job.ID, job.ClientID, job.TemplateID, recipientsJSON, job.ScheduledAt,
		job.Status, job.IsRecurring, job.RecurrenceEnd, job.SentAt,
		nullIfEmpty(job.FailedReason), job.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.ScheduledEmailJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scheduled_emails WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected, next models.JobStatus, upd TerminalUpdate) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_emails
		 SET status = $1,
		     sent_at = $2,
		     failed_reason = COALESCE($3, failed_reason)
		 WHERE id = $4 AND status = $5`,
		next, upd.SentAt, nullIfEmpty(upd.FailedReason), id, expected,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SelectDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledEmailJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM scheduled_emails
		 WHERE status = $1 AND scheduled_at <= $2
		 ORDER BY scheduled_at ASC
		 LIMIT $3`,
		models.StatusPending, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *PostgresStore) CancelAllPending(ctx context.Context, clientID int64) ([]uuid.UUID, error) {
	return cancelAllPending(ctx, s.pool, clientID)
}

func cancelAllPending(ctx context.Context, q querier, clientID int64) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx,
		`UPDATE scheduled_emails
		 SET status = $1
		 WHERE client_id = $2 AND status = $3
		 RETURNING id`,
		models.StatusCancelled, clientID, models.StatusPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ReplacePending(ctx context.Context, clientID int64, jobs []*models.ScheduledEmailJob) ([]uuid.UUID, error) {
	var cancelled []uuid.UUID
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		cancelled, err = cancelAllPending(ctx, tx, clientID)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			if err := insertJob(ctx, tx, job); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID int64, status models.JobStatus, limit, offset int) ([]*models.ScheduledEmailJob, int, error) {
	where := `WHERE client_id = $1`
	args := []any{clientID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scheduled_emails `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	// A non-positive limit means no limit; NULL disables LIMIT in Postgres,
	// matching the in-memory store.
	var lim any
	if limit > 0 {
		lim = limit
	}

	argN := len(args)
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM scheduled_emails `+where+`
		 ORDER BY scheduled_at DESC
		 LIMIT $`+strconv.Itoa(argN+1)+` OFFSET $`+strconv.Itoa(argN+2),
		append(args, lim, offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func scanJobs(rows pgx.Rows) ([]*models.ScheduledEmailJob, error) {
	var jobs []*models.ScheduledEmailJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*models.ScheduledEmailJob, error) {
	var (
		job            models.ScheduledEmailJob
		recipientsJSON []byte
		failedReason   *string
	)
	err := row.Scan(
		&job.ID, &job.ClientID, &job.TemplateID, &recipientsJSON,
		&job.ScheduledAt, &job.Status, &job.IsRecurring, &job.RecurrenceEnd,
		&job.SentAt, &failedReason, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recipientsJSON, &job.Recipients); err != nil {
		return nil, err
	}
	if failedReason != nil {
		job.FailedReason = *failedReason
	}
	return &job, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

