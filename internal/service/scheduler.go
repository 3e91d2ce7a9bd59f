package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Broadcaster is the part of the distribution engine a trigger fires into.
type Broadcaster interface {
	BroadcastScheduled(ctx context.Context, taskID int64) (*models.DistributionResult, error)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron accepts exactly five fields: minute, hour, day-of-month, month, day-of-week.
// It returns the expression with whitespace normalized.
func ParseCron(expr string) (string, cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return "", nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidCronExpression, len(fields))
	}

	normalized := strings.Join(fields, " ")
	sched, err := cronParser.Parse(normalized)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidCronExpression, err)
	}

	return normalized, sched, nil
}

// Scheduler owns at most one recurring trigger per task.
type Scheduler struct {
	cron        *cron.Cron
	taskRepo    repository.TaskRepository
	broadcaster Broadcaster
	logger      zerolog.Logger

	// mu serializes schedule changes so the stored expression and the live
	// trigger always agree.
	mu      sync.Mutex
	entries map[int64]cron.EntryID

	runMu   sync.Mutex
	running map[int64]bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(
	taskRepo repository.TaskRepository,
	broadcaster Broadcaster,
	location *time.Location,
	logger zerolog.Logger,
) *Scheduler {
	if location == nil {
		location = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(location),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		taskRepo:    taskRepo,
		broadcaster: broadcaster,
		logger:      logger,
		entries:     make(map[int64]cron.EntryID),
		running:     make(map[int64]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("triggers", s.TriggerCount()).Msg("Scheduler started")
}

// Stop halts new firings and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stop timed out, cancelling running firings")
	}
	s.cancel()
	s.logger.Info().Msg("Scheduler stopped")
}

// Schedule validates expr, persists it on the task and replaces any live trigger.
func (s *Scheduler) Schedule(ctx context.Context, taskID int64, expr string) (string, error) {
	normalized, sched, err := ParseCron(expr)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.taskRepo.UpdateSchedule(ctx, taskID, normalized); err != nil {
		return "", storeErr("update schedule", err, ErrTaskNotFound)
	}

	s.install(taskID, sched)

	s.logger.Info().Int64("task_id", taskID).Str("cron", normalized).Msg("Task scheduled")

	return normalized, nil
}

// Unschedule clears the stored expression and removes the trigger.
func (s *Scheduler) Unschedule(ctx context.Context, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.taskRepo.UpdateSchedule(ctx, taskID, ""); err != nil {
		return storeErr("clear schedule", err, ErrTaskNotFound)
	}

	if id, ok := s.entries[taskID]; ok {
		s.cron.Remove(id)
		delete(s.entries, taskID)
	}

	s.logger.Info().Int64("task_id", taskID).Msg("Task unscheduled")

	return nil
}

// Restore re-arms every task with a stored expression. Invalid expressions
// are logged and skipped.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	tasks, err := s.taskRepo.GetScheduled(ctx)
	if err != nil {
		return 0, storeErr("list scheduled tasks", err, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, task := range tasks {
		_, sched, err := ParseCron(task.ScheduledCron)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("task_id", task.ID).
				Str("cron", task.ScheduledCron).
				Msg("Skipping stored schedule")
			continue
		}
		s.install(task.ID, sched)
		restored++
	}

	s.logger.Info().Int("restored", restored).Int("stored", len(tasks)).Msg("Schedules restored")

	return restored, nil
}

func (s *Scheduler) HasTrigger(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[taskID]
	return ok
}

func (s *Scheduler) TriggerCount() int {
	return len(s.cron.Entries())
}

// NextRun reports when the task's trigger fires next.
func (s *Scheduler) NextRun(taskID int64) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[taskID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if !entry.Next.IsZero() {
		return entry.Next, true
	}
	// Not started yet: compute from the schedule itself.
	return entry.Schedule.Next(time.Now()), true
}

// install must be called with mu held.
func (s *Scheduler) install(taskID int64, sched cron.Schedule) {
	if old, ok := s.entries[taskID]; ok {
		s.cron.Remove(old)
	}

	s.entries[taskID] = s.cron.Schedule(sched, cron.FuncJob(func() {
		s.fire(taskID)
	}))
}

// fire runs one broadcast. A firing that overlaps a running one for the
// same task is skipped.
func (s *Scheduler) fire(taskID int64) {
	if !s.acquire(taskID) {
		s.logger.Warn().Int64("task_id", taskID).Msg("Previous firing still running, skipping")
		return
	}
	defer s.release(taskID)

	s.logger.Info().Int64("task_id", taskID).Msg("Scheduled distribution started")

	result, err := s.broadcaster.BroadcastScheduled(s.ctx, taskID)
	switch {
	case errors.Is(err, ErrTaskNotFound):
		s.logger.Error().Int64("task_id", taskID).Msg("Scheduled task no longer exists")
		return
	case err != nil:
		s.logger.Error().Err(err).Int64("task_id", taskID).Msg("Scheduled distribution failed")
		return
	}

	s.logger.Info().
		Int64("task_id", taskID).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Msg("Scheduled distribution finished")
}

func (s *Scheduler) acquire(taskID int64) bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running[taskID] {
		return false
	}
	s.running[taskID] = true
	return true
}

func (s *Scheduler) release(taskID int64) {
	s.runMu.Lock()
	delete(s.running, taskID)
	s.runMu.Unlock()
}

// cronLogger routes cron's own logging into zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
