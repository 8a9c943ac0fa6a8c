package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

type ConfigStore struct {
	db DB
}

var _ ports.ConfigStore = (*ConfigStore)(nil)

func NewConfigStore(db DB) *ConfigStore {
	return &ConfigStore{db: db}
}

func (c *ConfigStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewStoreError("config get", err)
	}
	return value, true, nil
}

func (c *ConfigStore) Set(ctx context.Context, key, value string) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	return domain.NewStoreError("config set", err)
}
