package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/RubachokBoss/homework-distributor/internal/service/integration"
	"github.com/RubachokBoss/homework-distributor/internal/worker"
	"github.com/rs/zerolog"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerReminder  = "reminder"
)

type DistributionService interface {
	// Distribute sends the task to the target. A target chat id does not have
	// to belong to a registered student.
	Distribute(ctx context.Context, taskID int64, target models.Target) (*models.DistributionResult, error)
	// BroadcastScheduled is Distribute to every student, reported as a scheduled firing.
	BroadcastScheduled(ctx context.Context, taskID int64) (*models.DistributionResult, error)
	// ResendUnsubmitted sends a reminder to students with no submission for the task.
	ResendUnsubmitted(ctx context.Context, taskID int64) (*models.DistributionResult, error)
}

type distributionService struct {
	taskRepo    repository.TaskRepository
	studentRepo repository.StudentRepository
	stats       StatsService
	notifier    integration.Notifier
	publisher   integration.EventPublisher
	pool        *worker.WorkerPool
	sendTimeout time.Duration
	logger      zerolog.Logger
}

func NewDistributionService(
	taskRepo repository.TaskRepository,
	studentRepo repository.StudentRepository,
	stats StatsService,
	notifier integration.Notifier,
	publisher integration.EventPublisher,
	pool *worker.WorkerPool,
	sendTimeout time.Duration,
	logger zerolog.Logger,
) DistributionService {
	return &distributionService{
		taskRepo:    taskRepo,
		studentRepo: studentRepo,
		stats:       stats,
		notifier:    notifier,
		publisher:   publisher,
		pool:        pool,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

func (s *distributionService) Distribute(ctx context.Context, taskID int64, target models.Target) (*models.DistributionResult, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var chatIDs []int64
	if target.All {
		chatIDs, err = s.roster(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		chatIDs = dedupe(target.ChatIDs)
	}

	return s.send(ctx, task, chatIDs, task.Announcement(), TriggerManual), nil
}

func (s *distributionService) BroadcastScheduled(ctx context.Context, taskID int64) (*models.DistributionResult, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	chatIDs, err := s.roster(ctx)
	if err != nil {
		return nil, err
	}

	return s.send(ctx, task, chatIDs, task.Announcement(), TriggerScheduled), nil
}

func (s *distributionService) ResendUnsubmitted(ctx context.Context, taskID int64) (*models.DistributionResult, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	chatIDs, err := s.stats.UnsubmittedChatIDs(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return s.send(ctx, task, chatIDs, task.Reminder(), TriggerReminder), nil
}

func (s *distributionService) loadTask(ctx context.Context, taskID int64) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, storeErr("get task", err, ErrTaskNotFound)
	}
	return task, nil
}

// roster is the snapshot of registered chat ids taken when the call starts.
func (s *distributionService) roster(ctx context.Context) ([]int64, error) {
	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, storeErr("list students", err, nil)
	}

	chatIDs := make([]int64, 0, len(students))
	for _, st := range students {
		chatIDs = append(chatIDs, st.ChatID)
	}
	return chatIDs, nil
}

type outcome struct {
	chatID int64
	err    error
}

// send fans the task out over the worker pool and waits for every target.
func (s *distributionService) send(ctx context.Context, task *models.Task, chatIDs []int64, text, trigger string) *models.DistributionResult {
	result := &models.DistributionResult{TaskID: task.ID}
	if len(chatIDs) == 0 {
		s.logger.Info().Int64("task_id", task.ID).Str("trigger", trigger).Msg("No recipients to distribute to")
		s.publish(ctx, result, trigger)
		return result
	}

	outcomes := make(chan outcome, len(chatIDs))
	var wg sync.WaitGroup

	for _, chatID := range chatIDs {
		chatID := chatID
		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			// Every target must report exactly one outcome, even when a send panics.
			defer func() {
				if r := recover(); r != nil {
					outcomes <- outcome{chatID: chatID, err: fmt.Errorf("delivery panicked: %v", r)}
				}
			}()
			outcomes <- outcome{chatID: chatID, err: s.deliver(ctx, task, chatID, text)}
		})
		if err != nil {
			wg.Done()
			outcomes <- outcome{chatID: chatID, err: fmt.Errorf("enqueue delivery: %w", err)}
		}
	}

	wg.Wait()
	close(outcomes)

	for o := range outcomes {
		if o.err == nil {
			result.Delivered++
			continue
		}
		result.Failed++
		result.Failures = append(result.Failures, models.DeliveryFailure{ChatID: o.chatID, Err: o.err})
		s.logger.Error().
			Err(o.err).
			Int64("task_id", task.ID).
			Int64("chat_id", o.chatID).
			Msg("Failed to deliver task")
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ChatID < result.Failures[j].ChatID
	})

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("trigger", trigger).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Msg("Task distributed")

	s.publish(ctx, result, trigger)

	return result
}

// deliver sends the announcement and then the artifact. Either failing fails the target.
func (s *distributionService) deliver(ctx context.Context, task *models.Task, chatID int64, text string) error {
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	if err := s.notifier.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}
	if err := s.notifier.SendArtifact(ctx, chatID, task.Artifact); err != nil {
		return fmt.Errorf("send artifact: %w", err)
	}
	return nil
}

func (s *distributionService) publish(ctx context.Context, result *models.DistributionResult, trigger string) {
	event := &models.TaskDistributedEvent{
		TaskID:    result.TaskID,
		Trigger:   trigger,
		Delivered: result.Delivered,
		Failed:    result.Failed,
		FailedIDs: result.FailedChatIDs(),
		Timestamp: time.Now().Unix(),
	}

	if err := s.publisher.PublishTaskDistributed(ctx, event); err != nil {
		s.logger.Error().Err(err).Int64("task_id", result.TaskID).Msg("Failed to publish distribution event")
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
