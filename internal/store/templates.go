package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"SendPlan/internal/models"
)

// TemplateByID resolves a job's template id to its stored content.
func (s *PostgresStore) TemplateByID(ctx context.Context, id int64) (*models.Template, error) {
	var t models.Template
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, subject, body FROM email_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Subject, &t.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("template %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &t, nil
}
