package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/RubachokBoss/homework-distributor/internal/service/integration"
	"github.com/rs/zerolog"
)

type TaskService interface {
	CreateTask(ctx context.Context, req *models.CreateTaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
}

type taskService struct {
	taskRepo repository.TaskRepository
	store    integration.ArtifactStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewTaskService(taskRepo repository.TaskRepository, store integration.ArtifactStore, logger zerolog.Logger) TaskService {
	return &taskService{
		taskRepo: taskRepo,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *taskService) CreateTask(ctx context.Context, req *models.CreateTaskRequest) (*models.Task, error) {
	if err := validateUpload(req.Upload); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTaskTitle(now)
	}

	handle, err := s.store.Save(ctx, req.Upload.FileName, req.Upload.Content, req.Upload.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store task artifact: %w", err)
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Artifact:    models.Artifact{Handle: handle, Kind: req.Upload.Kind},
		CreatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, storeErr("create task", err, nil)
	}

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("title", task.Title).
		Str("file_type", task.Artifact.Kind.String()).
		Msg("Task created")

	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get task", err, ErrTaskNotFound)
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.taskRepo.GetAll(ctx)
	if err != nil {
		return nil, storeErr("list tasks", err, nil)
	}
	return tasks, nil
}

// ParseTaskCaption splits an upload caption of the form "<title> | <description>".
// Without a separator the whole caption is the title.
func ParseTaskCaption(caption string) (title, description string) {
	caption = strings.TrimSpace(caption)
	if before, after, ok := strings.Cut(caption, "|"); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return caption, ""
}

func DefaultTaskTitle(now time.Time) string {
	return "Task " + now.UTC().Format(time.RFC3339)
}

func validateUpload(u models.Upload) error {
	if u.Content == nil {
		return fmt.Errorf("%w: empty content", ErrInvalidArtifact)
	}
	if !models.IsValidMediaKind(string(u.Kind)) {
		return fmt.Errorf("%w: unsupported media kind %q", ErrInvalidArtifact, u.Kind)
	}
	return nil
}
