package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teacherChatID = 1000

func newSubmissionService(f *fixture, staticTeacher int64) SubmissionService {
	log := zerolog.Nop()
	return NewSubmissionService(
		f.submissions,
		f.students,
		f.tasks,
		NewSubmissionResolver(f.tasks, log),
		NewAccessService(f.settings, staticTeacher, log),
		f.store,
		f.notifier,
		f.publisher,
		log,
	)
}

func inbound(chatID int64, caption, reply string) *models.InboundSubmission {
	return &models.InboundSubmission{
		SenderChatID: chatID,
		SenderName:   "Sender",
		Caption:      caption,
		ReplyText:    reply,
		Upload: models.Upload{
			FileName: "answer.ogg",
			Kind:     models.MediaKindVoice,
			Size:     5,
			Content:  strings.NewReader("voice"),
		},
	}
}

func TestSubmitRecordsAndNotifiesTeacher(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	svc := newSubmissionService(f, teacherChatID)

	sub, err := svc.Submit(context.Background(), inbound(1, "task: 1", ""))
	require.NoError(t, err)

	assert.Equal(t, task.ID, sub.TaskID)
	assert.Equal(t, int64(1), sub.StudentChatID)
	assert.Equal(t, models.MediaKindVoice, sub.Artifact.Kind)
	assert.Equal(t, 1, f.store.count())

	texts := f.notifier.textsFor(teacherChatID)
	require.Len(t, texts, 1)
	assert.Equal(t, "New submission for task 1 from Ann (chat_id=1)", texts[0])

	require.Len(t, f.publisher.received, 1)
	assert.Equal(t, sub.ID, f.publisher.received[0].SubmissionID)
}

func TestSubmitFromReplyText(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	svc := newSubmissionService(f, 0)

	sub, err := svc.Submit(context.Background(), inbound(1, "", task.Announcement()))
	require.NoError(t, err)
	assert.Equal(t, task.ID, sub.TaskID)
}

func TestSubmitRejectionsStoreNothing(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		sender  int64
		wantErr error
	}{
		{name: "ambiguous", caption: "hello", sender: 1, wantErr: ErrAmbiguousSubmission},
		{name: "unknown task", caption: "task: 9", sender: 1, wantErr: ErrTaskNotFound},
		{name: "unregistered sender", caption: "task: 1", sender: 2, wantErr: ErrStudentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addTask(t, "Lesson")
			f.addStudent(t, 1, "Ann")
			svc := newSubmissionService(f, teacherChatID)

			_, err := svc.Submit(context.Background(), inbound(tt.sender, tt.caption, ""))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.store.count())
			assert.Empty(t, f.notifier.textsFor(teacherChatID))

			subs, err := f.submissions.GetByTask(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, subs)
		})
	}
}

func TestSubmitWithoutTeacherStillRecords(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	svc := newSubmissionService(f, 0)

	_, err := svc.Submit(context.Background(), inbound(1, "task: 1", ""))
	require.NoError(t, err)
}

func TestStudentTasks(t *testing.T) {
	f := newFixture(t)
	first := f.addTask(t, "First")
	f.addTask(t, "Second")
	f.addStudent(t, 1, "Ann")
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f.addSubmission(t, first.ID, 1, at)
	svc := newSubmissionService(f, 0)

	tasks, err := svc.StudentTasks(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	require.NotNil(t, tasks[0].SubmittedAt)
	assert.Equal(t, at, *tasks[0].SubmittedAt)
	assert.Nil(t, tasks[1].SubmittedAt)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	svc := newSubmissionService(f, 0)

	data, err := svc.ExportCSV(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Nil(t, data)

	f.addSubmission(t, task.ID, 1, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	data, err = svc.ExportCSV(context.Background(), task.ID)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"student_chat_id", "file_path", "file_type", "submitted_at"},
		{"1", "answer.ogg", "voice", "2024-01-02T03:04:05Z"},
	}, records)

	_, err = svc.ExportCSV(context.Background(), 99)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

type failingSubmissions struct {
	repository.SubmissionRepository
	err error
}

func (r failingSubmissions) Create(context.Context, *models.Submission) error { return r.err }

func TestSubmitLogsOrphanedArtifact(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")

	var logs bytes.Buffer
	log := zerolog.New(&logs)
	svc := NewSubmissionService(
		failingSubmissions{SubmissionRepository: f.submissions, err: errors.New("connection reset")},
		f.students,
		f.tasks,
		NewSubmissionResolver(f.tasks, log),
		NewAccessService(f.settings, teacherChatID, log),
		f.store,
		f.notifier,
		f.publisher,
		log,
	)

	_, err := svc.Submit(context.Background(), inbound(1, "task: 1", ""))
	assert.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, 1, f.store.count())
	assert.Contains(t, logs.String(), `"handle":"1-answer.ogg"`)
	assert.Empty(t, f.notifier.textsFor(teacherChatID))
}
