package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/rs/zerolog"
)

type taskRepository struct {
	*PostgresRepository
}

func NewTaskRepository(db *sql.DB, logger zerolog.Logger) TaskRepository {
	return &taskRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const taskColumns = `id, title, description, file_path, file_type, created_at, scheduled_cron`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task     models.Task
		fileType string
		cron     sql.NullString
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Artifact.Handle,
		&fileType,
		&task.CreatedAt,
		&cron,
	); err != nil {
		return nil, err
	}

	task.Artifact.Kind = models.MediaKind(fileType)
	task.ScheduledCron = cron.String
	return &task, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (title, description, file_path, file_type, created_at, scheduled_cron)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.Artifact.Handle,
		task.Artifact.Kind.String(),
		task.CreatedAt,
		nullString(task.ScheduledCron),
	).Scan(&task.ID)
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return task, err
}

func (r *taskRepository) GetAll(ctx context.Context) ([]models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

func (r *taskRepository) GetScheduled(ctx context.Context) ([]models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE scheduled_cron IS NOT NULL AND scheduled_cron <> '' ORDER BY id`)
}

func (r *taskRepository) list(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

func (r *taskRepository) UpdateSchedule(ctx context.Context, id int64, expr string) error {
	query := `
		UPDATE tasks
		SET scheduled_cron = $1
		WHERE id = $2
	`

	res, err := r.db.ExecContext(ctx, query, nullString(expr), id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
