package repository

import (
	"context"

	"github.com/RubachokBoss/homework-distributor/internal/models"
)

type StudentRepository interface {
	// Upsert inserts the student unless its chat id is already registered.
	// created reports whether a new row was written.
	Upsert(ctx context.Context, student *models.Student) (created bool, err error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Student, error)
	GetAll(ctx context.Context) ([]models.Student, error)
}

type TaskRepository interface {
	// Create assigns task.ID.
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	GetAll(ctx context.Context) ([]models.Task, error)
	GetScheduled(ctx context.Context) ([]models.Task, error)
	// UpdateSchedule sets the recurrence expression; an empty expr clears it.
	UpdateSchedule(ctx context.Context, id int64, expr string) error
}

type SubmissionRepository interface {
	// Create assigns sub.ID.
	Create(ctx context.Context, sub *models.Submission) error
	GetByTask(ctx context.Context, taskID int64) ([]models.Submission, error)
	GetSubmittedStudents(ctx context.Context, taskID int64) ([]int64, error)
	// GetLatestByTask returns one mark per student: the most recent submission time.
	GetLatestByTask(ctx context.Context, taskID int64) ([]models.SubmissionMark, error)
	// GetLatestByStudent maps task id to the student's most recent submission time.
	GetLatestByStudent(ctx context.Context, chatID int64) (map[int64]models.SubmissionMark, error)
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
