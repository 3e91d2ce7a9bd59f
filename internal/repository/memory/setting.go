package memory

import (
	"context"

	"github.com/RubachokBoss/homework-distributor/internal/repository"
)

type settingRepository struct {
	db *DB
}

func NewSettingRepository(db *DB) repository.SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	v, ok := r.db.settings[key]
	return v, ok, nil
}

func (r *settingRepository) Set(_ context.Context, key, value string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.settings[key] = value
	return nil
}
