package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/rs/zerolog"
)

const taskMarker = "task:"

// SubmissionResolver works out which task an inbound artifact answers.
type SubmissionResolver interface {
	Resolve(ctx context.Context, caption, replyText string) (int64, error)
}

type submissionResolver struct {
	taskRepo repository.TaskRepository
	logger   zerolog.Logger
}

func NewSubmissionResolver(taskRepo repository.TaskRepository, logger zerolog.Logger) SubmissionResolver {
	return &submissionResolver{
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// Resolve returns ErrAmbiguousSubmission when neither hint names a task and
// ErrTaskNotFound when the named task does not exist.
func (r *submissionResolver) Resolve(ctx context.Context, caption, replyText string) (int64, error) {
	taskID, ok := ParseTaskReference(caption, replyText)
	if !ok {
		return 0, ErrAmbiguousSubmission
	}

	if _, err := r.taskRepo.GetByID(ctx, taskID); err != nil {
		return 0, storeErr("resolve submission", err, ErrTaskNotFound)
	}

	r.logger.Debug().Int64("task_id", taskID).Msg("Submission resolved")

	return taskID, nil
}

// ParseTaskReference tries the caption's "task: <id>" first and falls back to
// the first numeric token of the replied-to message.
func ParseTaskReference(caption, replyText string) (int64, bool) {
	if id, ok := fromCaption(caption); ok {
		return id, true
	}
	return fromReply(replyText)
}

func fromCaption(caption string) (int64, bool) {
	idx := strings.Index(strings.ToLower(caption), taskMarker)
	if idx < 0 {
		return 0, false
	}

	fields := strings.Fields(caption[idx+len(taskMarker):])
	if len(fields) == 0 {
		return 0, false
	}

	return parseTaskID(fields[0])
}

func fromReply(text string) (int64, bool) {
	for _, token := range strings.Fields(text) {
		if !isDigits(token) {
			continue
		}
		return parseTaskID(token)
	}
	return 0, false
}

func parseTaskID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
