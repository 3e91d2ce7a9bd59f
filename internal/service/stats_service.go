package service

import (
	"context"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/rs/zerolog"
)

type StatsService interface {
	// Stats partitions the whole roster by whether each student submitted the task.
	Stats(ctx context.Context, taskID int64) (*models.TaskStats, error)
	UnsubmittedChatIDs(ctx context.Context, taskID int64) ([]int64, error)
}

type statsService struct {
	taskRepo       repository.TaskRepository
	studentRepo    repository.StudentRepository
	submissionRepo repository.SubmissionRepository
	logger         zerolog.Logger
}

func NewStatsService(
	taskRepo repository.TaskRepository,
	studentRepo repository.StudentRepository,
	submissionRepo repository.SubmissionRepository,
	logger zerolog.Logger,
) StatsService {
	return &statsService{
		taskRepo:       taskRepo,
		studentRepo:    studentRepo,
		submissionRepo: submissionRepo,
		logger:         logger,
	}
}

func (s *statsService) Stats(ctx context.Context, taskID int64) (*models.TaskStats, error) {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return nil, storeErr("get task", err, ErrTaskNotFound)
	}

	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, storeErr("list students", err, nil)
	}

	marks, err := s.submissionRepo.GetLatestByTask(ctx, taskID)
	if err != nil {
		return nil, storeErr("list submissions", err, nil)
	}

	latest := make(map[int64]models.SubmissionMark, len(marks))
	for _, m := range marks {
		latest[m.StudentChatID] = m
	}

	stats := &models.TaskStats{
		TaskID:       taskID,
		Submitted:    []models.SubmittedStudent{},
		NotSubmitted: []models.Student{},
	}
	for _, st := range students {
		if m, ok := latest[st.ChatID]; ok {
			stats.Submitted = append(stats.Submitted, models.SubmittedStudent{Student: st, SubmittedAt: m.SubmittedAt})
		} else {
			stats.NotSubmitted = append(stats.NotSubmitted, st)
		}
	}

	s.logger.Debug().
		Int64("task_id", taskID).
		Int("submitted", len(stats.Submitted)).
		Int("not_submitted", len(stats.NotSubmitted)).
		Msg("Stats computed")

	return stats, nil
}

func (s *statsService) UnsubmittedChatIDs(ctx context.Context, taskID int64) ([]int64, error) {
	stats, err := s.Stats(ctx, taskID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(stats.NotSubmitted))
	for _, st := range stats.NotSubmitted {
		ids = append(ids, st.ChatID)
	}
	return ids, nil
}
