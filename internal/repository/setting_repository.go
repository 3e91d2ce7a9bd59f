package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
)

type settingRepository struct {
	*PostgresRepository
}

func NewSettingRepository(db *sql.DB, logger zerolog.Logger) SettingRepository {
	return &settingRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (r *settingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}
