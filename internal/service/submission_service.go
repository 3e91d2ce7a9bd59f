package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/RubachokBoss/homework-distributor/internal/service/integration"
	"github.com/rs/zerolog"
)

var exportHeader = []string{"student_chat_id", "file_path", "file_type", "submitted_at"}

type SubmissionService interface {
	// Submit resolves the task, stores the artifact and records the submission.
	// Nothing is stored when the task cannot be resolved.
	Submit(ctx context.Context, in *models.InboundSubmission) (*models.Submission, error)
	ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error)
	// StudentTasks lists every task with the student's latest submission, if any.
	StudentTasks(ctx context.Context, chatID int64) ([]models.StudentTask, error)
	// ExportCSV returns nil content when the task has no submissions.
	ExportCSV(ctx context.Context, taskID int64) ([]byte, error)
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	studentRepo    repository.StudentRepository
	taskRepo       repository.TaskRepository
	resolver       SubmissionResolver
	access         AccessService
	store          integration.ArtifactStore
	notifier       integration.Notifier
	publisher      integration.EventPublisher
	logger         zerolog.Logger
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	studentRepo repository.StudentRepository,
	taskRepo repository.TaskRepository,
	resolver SubmissionResolver,
	access AccessService,
	store integration.ArtifactStore,
	notifier integration.Notifier,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		studentRepo:    studentRepo,
		taskRepo:       taskRepo,
		resolver:       resolver,
		access:         access,
		store:          store,
		notifier:       notifier,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *submissionService) Submit(ctx context.Context, in *models.InboundSubmission) (*models.Submission, error) {
	if err := validateUpload(in.Upload); err != nil {
		return nil, err
	}

	taskID, err := s.resolver.Resolve(ctx, in.Caption, in.ReplyText)
	if err != nil {
		return nil, err
	}

	student, err := s.studentRepo.GetByChatID(ctx, in.SenderChatID)
	if err != nil {
		return nil, storeErr("get student", err, ErrStudentNotFound)
	}

	handle, err := s.store.Save(ctx, in.Upload.FileName, in.Upload.Content, in.Upload.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store submission artifact: %w", err)
	}

	sub := &models.Submission{
		TaskID:        taskID,
		StudentChatID: student.ChatID,
		Artifact:      models.Artifact{Handle: handle, Kind: in.Upload.Kind},
		SubmittedAt:   time.Now().UTC(),
	}

	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		// The artifact store has no delete; the blob stays behind without a row.
		s.logger.Error().
			Err(err).
			Str("handle", handle).
			Int64("task_id", taskID).
			Int64("chat_id", student.ChatID).
			Msg("Submission not recorded, artifact orphaned")
		return nil, storeErr("create submission", err, ErrTaskNotFound)
	}

	s.logger.Info().
		Int64("submission_id", sub.ID).
		Int64("task_id", taskID).
		Int64("chat_id", student.ChatID).
		Msg("Submission recorded")

	event := &models.SubmissionReceivedEvent{
		SubmissionID:  sub.ID,
		TaskID:        sub.TaskID,
		StudentChatID: sub.StudentChatID,
		FileType:      sub.Artifact.Kind.String(),
		Timestamp:     sub.SubmittedAt.Unix(),
	}
	if err := s.publisher.PublishSubmissionReceived(ctx, event); err != nil {
		s.logger.Error().Err(err).Int64("submission_id", sub.ID).Msg("Failed to publish submission event")
	}

	s.notifyTeacher(ctx, sub, displayName(student, in.SenderName))

	return sub, nil
}

// notifyTeacher is best-effort; the submission is already stored.
func (s *submissionService) notifyTeacher(ctx context.Context, sub *models.Submission, name string) {
	teacherID, ok, err := s.access.TeacherID(ctx)
	if err != nil || !ok {
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to look up teacher for notification")
		}
		return
	}

	text := fmt.Sprintf("New submission for task %d from %s (chat_id=%d)", sub.TaskID, name, sub.StudentChatID)
	if err := s.notifier.SendText(ctx, teacherID, text); err != nil {
		s.logger.Error().Err(err).Int64("chat_id", teacherID).Msg("Failed to notify teacher")
	}
}

func (s *submissionService) ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return nil, storeErr("get task", err, ErrTaskNotFound)
	}

	subs, err := s.submissionRepo.GetByTask(ctx, taskID)
	if err != nil {
		return nil, storeErr("list submissions", err, nil)
	}
	return subs, nil
}

func (s *submissionService) StudentTasks(ctx context.Context, chatID int64) ([]models.StudentTask, error) {
	tasks, err := s.taskRepo.GetAll(ctx)
	if err != nil {
		return nil, storeErr("list tasks", err, nil)
	}

	marks, err := s.submissionRepo.GetLatestByStudent(ctx, chatID)
	if err != nil {
		return nil, storeErr("list submissions", err, nil)
	}

	res := make([]models.StudentTask, 0, len(tasks))
	for _, t := range tasks {
		st := models.StudentTask{Task: t}
		if m, ok := marks[t.ID]; ok {
			at := m.SubmittedAt
			st.SubmittedAt = &at
		}
		res = append(res, st)
	}
	return res, nil
}

func (s *submissionService) ExportCSV(ctx context.Context, taskID int64) ([]byte, error) {
	subs, err := s.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, sub := range subs {
		record := []string{
			strconv.FormatInt(sub.StudentChatID, 10),
			sub.Artifact.Handle,
			sub.Artifact.Kind.String(),
			sub.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}

	return buf.Bytes(), nil
}

func displayName(student *models.Student, fallback string) string {
	if name := strings.TrimSpace(student.Name); name != "" {
		return name
	}
	return fallback
}
