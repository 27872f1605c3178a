package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"SendPlan/internal/models"
)

// ConfigStore persists the latest saved email configuration per client. The
// stored document is a convenience for the UI; the job table stays the
// source of truth for what will actually be sent.
type ConfigStore interface {
	SaveConfig(ctx context.Context, clientID int64, cfg *models.EmailConfig) error
	GetConfig(ctx context.Context, clientID int64) (*models.EmailConfig, error)
	DeleteConfig(ctx context.Context, clientID int64) error
}

func (s *PostgresStore) SaveConfig(ctx context.Context, clientID int64, cfg *models.EmailConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO client_email_configs (client_id, config_data, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (client_id)
		 DO UPDATE SET config_data = EXCLUDED.config_data, updated_at = NOW()`,
		clientID, data,
	)
	return err
}

func (s *PostgresStore) GetConfig(ctx context.Context, clientID int64) (*models.EmailConfig, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config_data FROM client_email_configs WHERE client_id = $1`, clientID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var cfg models.EmailConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *PostgresStore) DeleteConfig(ctx context.Context, clientID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM client_email_configs WHERE client_id = $1`, clientID)
	return err
}
