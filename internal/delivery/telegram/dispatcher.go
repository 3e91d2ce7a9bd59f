package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/service"
	"github.com/RubachokBoss/homework-distributor/internal/service/integration"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Downloader fetches a file a user uploaded to the bot.
type Downloader interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
}

// Scheduler is the part of service.Scheduler commands need.
type Scheduler interface {
	Schedule(ctx context.Context, taskID int64, expr string) (string, error)
	Unschedule(ctx context.Context, taskID int64) error
	NextRun(taskID int64) (time.Time, bool)
}

type commandFunc func(ctx context.Context, msg *tgbotapi.Message, args []string)

type command struct {
	handle      commandFunc
	teacherOnly bool
}

// Dispatcher maps inbound Telegram updates onto service calls.
type Dispatcher struct {
	access       service.AccessService
	students     service.StudentService
	tasks        service.TaskService
	submissions  service.SubmissionService
	distribution service.DistributionService
	stats        service.StatsService
	scheduler    Scheduler
	notifier     integration.Notifier
	downloader   Downloader
	logger       zerolog.Logger

	commands map[string]command
	wg       sync.WaitGroup
}

func NewDispatcher(
	access service.AccessService,
	students service.StudentService,
	tasks service.TaskService,
	submissions service.SubmissionService,
	distribution service.DistributionService,
	stats service.StatsService,
	scheduler Scheduler,
	notifier integration.Notifier,
	downloader Downloader,
	logger zerolog.Logger,
) *Dispatcher {
	d := &Dispatcher{
		access:       access,
		students:     students,
		tasks:        tasks,
		submissions:  submissions,
		distribution: distribution,
		stats:        stats,
		scheduler:    scheduler,
		notifier:     notifier,
		downloader:   downloader,
		logger:       logger,
	}

	d.commands = map[string]command{
		"start":       {handle: d.cmdStart},
		"set_teacher": {handle: d.cmdSetTeacher},
		"help":        {handle: d.cmdHelp},
		"my_tasks":    {handle: d.cmdMyTasks},
		"submit":      {handle: d.cmdSubmit},

		"help_teacher":       {handle: d.cmdHelpTeacher, teacherOnly: true},
		"upload_task":        {handle: d.cmdUploadTask, teacherOnly: true},
		"send_task":          {handle: d.cmdSendTask, teacherOnly: true},
		"schedule_task":      {handle: d.cmdScheduleTask, teacherOnly: true},
		"unschedule_task":    {handle: d.cmdUnscheduleTask, teacherOnly: true},
		"resend_unsubmitted": {handle: d.cmdResendUnsubmitted, teacherOnly: true},
		"stats":              {handle: d.cmdStats, teacherOnly: true},
		"list_students":      {handle: d.cmdListStudents, teacherOnly: true},
		"export_submissions": {handle: d.cmdExportSubmissions, teacherOnly: true},
	}

	return d
}

// Run handles updates until ctx is done or the channel closes, then waits
// for in-flight handlers.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	d.logger.Info().Msg("Telegram dispatcher started")
	defer func() {
		d.wg.Wait()
		d.logger.Info().Msg("Telegram dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Handle(ctx, update)
			}()
		}
	}
}

func (d *Dispatcher) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Int64("chat_id", msg.Chat.ID).Msg("Handler panicked")
		}
	}()

	if msg.IsCommand() {
		d.handleCommand(ctx, msg)
		return
	}

	if file, ok := extractFile(msg); ok {
		d.handleFile(ctx, msg, file)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	name := msg.Command()
	cmd, ok := d.commands[name]
	if !ok {
		d.reply(ctx, msg, "Unknown command. Use /help.")
		return
	}

	if cmd.teacherOnly {
		if err := d.access.Authorize(ctx, msg.From.ID); err != nil {
			d.replyError(ctx, msg, err)
			return
		}
	}

	d.logger.Debug().Str("command", name).Int64("chat_id", msg.From.ID).Msg("Command received")

	cmd.handle(ctx, msg, strings.Fields(msg.CommandArguments()))
}

func (d *Dispatcher) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	if err := d.notifier.SendText(ctx, msg.Chat.ID, text); err != nil {
		d.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to reply")
	}
}

// replyError turns a service error into a user-facing message.
func (d *Dispatcher) replyError(ctx context.Context, msg *tgbotapi.Message, err error) {
	var text string
	switch {
	case errors.Is(err, service.ErrTeacherNotConfigured):
		text = "Teacher not configured. Teacher must run /set_teacher to register themself."
	case errors.Is(err, service.ErrUnauthorized):
		text = "Only the configured teacher can use this command."
	case errors.Is(err, service.ErrTaskNotFound):
		text = "Task not found."
	case errors.Is(err, service.ErrStudentNotFound):
		text = "You are not registered yet. Send /start first."
	case errors.Is(err, service.ErrInvalidCronExpression):
		text = "Invalid cron expression. Use five fields: minute hour day-of-month month day-of-week, e.g. 0 18 * * *"
	case errors.Is(err, service.ErrAmbiguousSubmission):
		text = "Could not tell which task this answers. Add the caption \"task: <id>\" or reply to the task message."
	case errors.Is(err, service.ErrInvalidArtifact):
		text = "Unsupported file. Send a video, audio, voice message or document."
	default:
		d.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Request failed")
		text = "Something went wrong. Please try again later."
	}
	d.reply(ctx, msg, text)
}
