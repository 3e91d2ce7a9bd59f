package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const studentHelp = `/start - register as student
/submit (attach audio/video) - how to submit an answer
/my_tasks - show your tasks and submission status`

const teacherHelp = `/set_teacher - set yourself as teacher
/upload_task - how to create a task (attach a file with caption "<title> | <description>")
/send_task <task_id> <all|chat_id> - send a task to all students or one chat
/schedule_task <task_id> <cron_expr> - send a task on a five-field cron schedule
/unschedule_task <task_id> - stop scheduled sending
/resend_unsubmitted <task_id> - remind students who have not submitted
/stats <task_id> - show who submitted and who did not
/list_students - list registered students
/export_submissions <task_id> - download submissions as CSV`

const timeLayout = "2006-01-02 15:04:05"

func (d *Dispatcher) cmdStart(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	isTeacher, err := d.access.IsTeacher(ctx, msg.From.ID)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	if isTeacher {
		d.reply(ctx, msg, "You are configured as the teacher. Use /help_teacher for teacher commands.")
		return
	}

	_, created, err := d.students.Register(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}

	if !created {
		d.reply(ctx, msg, "You are already registered. Use /help for the list of commands.")
		return
	}
	d.reply(ctx, msg, "You are registered as a student. Wait for tasks from the teacher. Use /help for the list of commands.")
}

func (d *Dispatcher) cmdSetTeacher(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	if err := d.access.SetTeacher(ctx, msg.From.ID); err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	d.reply(ctx, msg, fmt.Sprintf("OK, you are configured as the teacher (chat_id=%d). Use /help_teacher.", msg.From.ID))
}

func (d *Dispatcher) cmdHelp(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	d.reply(ctx, msg, studentHelp)
}

func (d *Dispatcher) cmdHelpTeacher(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	d.reply(ctx, msg, teacherHelp)
}

func (d *Dispatcher) cmdSubmit(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	d.reply(ctx, msg, "Send a file (audio/video) with the caption \"task: <id>\" or reply to the task message.")
}

func (d *Dispatcher) cmdUploadTask(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	d.reply(ctx, msg, "Send a file (audio or video) with the caption: <title> | <description>\nExample: \"Lesson 1 | Repeat the letter A\"")
}

func (d *Dispatcher) cmdMyTasks(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	tasks, err := d.submissions.StudentTasks(ctx, msg.From.ID)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	if len(tasks) == 0 {
		d.reply(ctx, msg, "No active tasks.")
		return
	}

	var b strings.Builder
	b.WriteString("Your tasks:\n")
	for _, t := range tasks {
		status := "Not submitted"
		if t.SubmittedAt != nil {
			status = "Submitted at " + t.SubmittedAt.Format(timeLayout)
		}
		fmt.Fprintf(&b, "- Task %d: %s (%s)\n", t.Task.ID, t.Task.Title, status)
	}
	d.reply(ctx, msg, b.String())
}

func (d *Dispatcher) cmdSendTask(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 2 {
		d.reply(ctx, msg, "Usage: /send_task <task_id> <all|chat_id>")
		return
	}
	taskID, ok := d.parseTaskID(ctx, msg, args[0])
	if !ok {
		return
	}
	target, err := ParseTarget(args[1])
	if err != nil {
		d.reply(ctx, msg, "Target must be \"all\" or a numeric chat_id.")
		return
	}

	result, err := d.distribution.Distribute(ctx, taskID, target)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	d.reply(ctx, msg, FormatDistribution("Task sent", result))
}

func (d *Dispatcher) cmdScheduleTask(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 2 {
		d.reply(ctx, msg, "Usage: /schedule_task <task_id> <cron_expr>\nExample: /schedule_task 1 \"0 18 * * *\"")
		return
	}
	taskID, ok := d.parseTaskID(ctx, msg, args[0])
	if !ok {
		return
	}

	// Users often quote the expression, as in /schedule_task 1 "0 18 * * *".
	raw := strings.Trim(strings.Join(args[1:], " "), "\"")
	expr, err := d.scheduler.Schedule(ctx, taskID, raw)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}

	text := fmt.Sprintf("Task %d scheduled with cron \"%s\".", taskID, expr)
	if next, ok := d.scheduler.NextRun(taskID); ok {
		text += "\nNext run: " + next.Format(timeLayout)
	}
	d.reply(ctx, msg, text)
}

func (d *Dispatcher) cmdUnscheduleTask(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		d.reply(ctx, msg, "Usage: /unschedule_task <task_id>")
		return
	}
	taskID, ok := d.parseTaskID(ctx, msg, args[0])
	if !ok {
		return
	}

	if err := d.scheduler.Unschedule(ctx, taskID); err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	d.reply(ctx, msg, fmt.Sprintf("Task %d is no longer scheduled.", taskID))
}

func (d *Dispatcher) cmdResendUnsubmitted(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		d.reply(ctx, msg, "Usage: /resend_unsubmitted <task_id>")
		return
	}
	taskID, ok := d.parseTaskID(ctx, msg, args[0])
	if !ok {
		return
	}

	result, err := d.distribution.ResendUnsubmitted(ctx, taskID)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	d.reply(ctx, msg, FormatDistribution("Reminders sent", result))
}

func (d *Dispatcher) cmdStats(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		d.reply(ctx, msg, "Usage: /stats <task_id>")
		return
	}
	taskID, ok := d.parseTaskID(ctx, msg, args[0])
	if !ok {
		return
	}

	stats, err := d.stats.Stats(ctx, taskID)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	d.reply(ctx, msg, FormatStats(stats))
}

func (d *Dispatcher) cmdListStudents(ctx context.Context, msg *tgbotapi.Message, _ []string) {
	students, err := d.students.ListStudents(ctx)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	if len(students) == 0 {
		d.reply(ctx, msg, "No students registered.")
		return
	}

	var b strings.Builder
	b.WriteString("Registered students:\n")
	for _, s := range students {
		fmt.Fprintf(&b, "- %s (chat_id=%d) registered %s\n", s.Name, s.ChatID, s.RegisteredAt.Format(timeLayout))
	}
	d.reply(ctx, msg, b.String())
}

func (d *Dispatcher) cmdExportSubmissions(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		d.reply(ctx, msg, "Usage: /export_submissions <task_id>")
		return
	}
	taskID, ok := d.parseTaskID(ctx, msg, args[0])
	if !ok {
		return
	}

	data, err := d.submissions.ExportCSV(ctx, taskID)
	if err != nil {
		d.replyError(ctx, msg, err)
		return
	}
	if data == nil {
		d.reply(ctx, msg, "No submissions for this task.")
		return
	}

	name := fmt.Sprintf("submissions_task_%d.csv", taskID)
	if err := d.notifier.SendFile(ctx, msg.Chat.ID, name, data); err != nil {
		d.logger.Error().Err(err).Int64("task_id", taskID).Msg("Failed to send export")
		d.reply(ctx, msg, "Failed to send the export file.")
	}
}

func (d *Dispatcher) parseTaskID(ctx context.Context, msg *tgbotapi.Message, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		d.reply(ctx, msg, "Invalid task_id.")
		return 0, false
	}
	return id, true
}

// ParseTarget reads "all" or a chat id.
func ParseTarget(raw string) (models.Target, error) {
	if strings.EqualFold(raw, "all") {
		return models.AllStudents(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return models.Target{}, fmt.Errorf("invalid target %q", raw)
	}
	return models.Students(id), nil
}

func FormatDistribution(prefix string, r *models.DistributionResult) string {
	text := fmt.Sprintf("%s: delivered %d, failed %d", prefix, r.Delivered, r.Failed)
	if ids := r.FailedChatIDs(); len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		text += "\nNot delivered to: " + strings.Join(parts, ", ")
	}
	return text
}

func FormatStats(s *models.TaskStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stats for task %d:\nSubmitted: %d\nNot submitted: %d\n", s.TaskID, len(s.Submitted), len(s.NotSubmitted))

	if len(s.Submitted) > 0 {
		b.WriteString("\nSubmitted:\n")
		for _, st := range s.Submitted {
			fmt.Fprintf(&b, "- %s (chat_id=%d) at %s\n", st.Name, st.ChatID, st.SubmittedAt.Format(timeLayout))
		}
	}
	if len(s.NotSubmitted) > 0 {
		b.WriteString("\nNot submitted:\n")
		for _, st := range s.NotSubmitted {
			fmt.Fprintf(&b, "- %s (chat_id=%d)\n", st.Name, st.ChatID)
		}
	}
	return b.String()
}

func fullName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.UserName
	}
	return name
}
