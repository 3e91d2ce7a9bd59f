package memory

import (
	"context"
	"sort"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
)

type taskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(_ context.Context, task *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.taskSeq++
	task.ID = r.db.taskSeq
	stored := *task
	r.db.tasks[task.ID] = &stored
	return nil
}

func (r *taskRepository) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if t, ok := r.db.tasks[id]; ok {
		task := *t
		return &task, nil
	}
	return nil, repository.ErrNotFound
}

func (r *taskRepository) GetAll(_ context.Context) ([]models.Task, error) {
	return r.filter(func(*models.Task) bool { return true }), nil
}

func (r *taskRepository) GetScheduled(_ context.Context) ([]models.Task, error) {
	return r.filter((*models.Task).IsScheduled), nil
}

func (r *taskRepository) filter(keep func(*models.Task) bool) []models.Task {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]models.Task, 0, len(r.db.tasks))
	for _, t := range r.db.tasks {
		if keep(t) {
			res = append(res, *t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *taskRepository) UpdateSchedule(_ context.Context, id int64, expr string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.ScheduledCron = expr
	return nil
}
