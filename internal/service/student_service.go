package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/rs/zerolog"
)

type StudentService interface {
	// Register is idempotent on chatID; created reports whether a new student was added.
	Register(ctx context.Context, chatID int64, name string) (student *models.Student, created bool, err error)
	GetStudent(ctx context.Context, chatID int64) (*models.Student, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
}

type studentService struct {
	studentRepo repository.StudentRepository
	logger      zerolog.Logger
}

func NewStudentService(studentRepo repository.StudentRepository, logger zerolog.Logger) StudentService {
	return &studentService{
		studentRepo: studentRepo,
		logger:      logger,
	}
}

func (s *studentService) Register(ctx context.Context, chatID int64, name string) (*models.Student, bool, error) {
	if chatID == 0 {
		return nil, false, fmt.Errorf("chat id is required")
	}

	student := &models.Student{
		ChatID:       chatID,
		Name:         strings.TrimSpace(name),
		RegisteredAt: time.Now().UTC(),
	}

	created, err := s.studentRepo.Upsert(ctx, student)
	if err != nil {
		return nil, false, storeErr("register student", err, nil)
	}

	if !created {
		existing, err := s.studentRepo.GetByChatID(ctx, chatID)
		if err != nil {
			return nil, false, storeErr("get student", err, ErrStudentNotFound)
		}
		return existing, false, nil
	}

	s.logger.Info().Int64("chat_id", chatID).Str("name", student.Name).Msg("Student registered")

	return student, true, nil
}

func (s *studentService) GetStudent(ctx context.Context, chatID int64) (*models.Student, error) {
	student, err := s.studentRepo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, storeErr("get student", err, ErrStudentNotFound)
	}
	return student, nil
}

func (s *studentService) ListStudents(ctx context.Context) ([]models.Student, error) {
	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, storeErr("list students", err, nil)
	}
	return students, nil
}
