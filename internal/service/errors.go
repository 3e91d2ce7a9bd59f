package service

import (
	"errors"
	"fmt"

	"github.com/RubachokBoss/homework-distributor/internal/repository"
)

var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrStudentNotFound       = errors.New("student not found")
	ErrInvalidCronExpression = errors.New("invalid cron expression")
	ErrAmbiguousSubmission   = errors.New("cannot determine which task the submission answers")
	ErrUnauthorized          = errors.New("only the configured teacher can do this")
	ErrTeacherNotConfigured  = errors.New("teacher is not configured")
	ErrPersistence           = errors.New("storage unavailable")
	ErrInvalidArtifact       = errors.New("invalid artifact")
)

// storeErr maps a repository failure onto the service taxonomy. notFound is
// returned for repository.ErrNotFound; everything else becomes ErrPersistence.
func storeErr(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}
