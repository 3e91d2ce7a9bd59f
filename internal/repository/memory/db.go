// Package memory keeps the whole store in process memory. It backs the
// "memory" database driver and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/RubachokBoss/homework-distributor/internal/models"
)

type DB struct {
	mu sync.RWMutex

	students    map[int64]*models.Student
	tasks       map[int64]*models.Task
	submissions []models.Submission
	settings    map[string]string

	studentSeq    int64
	taskSeq       int64
	submissionSeq int64
}

func Open() *DB {
	return &DB{
		students: make(map[int64]*models.Student),
		tasks:    make(map[int64]*models.Task),
		settings: make(map[string]string),
	}
}

// Ping fails only when ctx is done. The memory store has no connection to lose.
func (db *DB) Ping(ctx context.Context) error {
	return ctx.Err()
}
