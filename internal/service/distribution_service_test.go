package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributeToEmptyRoster(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")

	result, err := f.distribution.Distribute(context.Background(), task.ID, models.AllStudents())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Delivered)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestDistributePartialFailure(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	f.addStudent(t, 2, "Bob")
	f.addStudent(t, 3, "Cid")
	f.notifier.failArtifact[2] = errors.New("blocked by user")

	result, err := f.distribution.Distribute(context.Background(), task.ID, models.AllStudents())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int64{2}, result.FailedChatIDs())

	for _, chatID := range []int64{1, 3} {
		texts := f.notifier.textsFor(chatID)
		require.Len(t, texts, 1)
		assert.Equal(t, task.Announcement(), texts[0])
		assert.Equal(t, []models.Artifact{task.Artifact}, f.notifier.artifactsFor(chatID))
	}
}

func TestDistributePanickingSendCountsAsFailure(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	f.addStudent(t, 2, "Bob")
	f.addStudent(t, 3, "Cid")
	f.notifier.panicArtifact[2] = true

	result, err := f.distribution.Distribute(context.Background(), task.ID, models.AllStudents())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int64{2}, result.FailedChatIDs())
	assert.ErrorContains(t, result.Failures[0].Err, "delivery panicked")
}

func TestDistributeTextFailureSkipsArtifact(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	f.notifier.failText[1] = errors.New("chat not found")

	result, err := f.distribution.Distribute(context.Background(), task.ID, models.AllStudents())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, f.notifier.artifactsFor(1))
}

func TestDistributeToUnregisteredChat(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")

	result, err := f.distribution.Distribute(context.Background(), task.ID, models.Students(555, 555))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Len(t, f.notifier.textsFor(555), 1)
}

func TestDistributeUnknownTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.distribution.Distribute(context.Background(), 42, models.AllStudents())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDistributeSendTimeoutCountsAsFailure(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	f.addStudent(t, 2, "Bob")
	f.notifier.block[2] = true

	dist := NewDistributionService(
		f.tasks, f.students, f.stats, f.notifier, f.publisher, f.pool, 50*time.Millisecond, zerolog.Nop(),
	)

	result, err := dist.Distribute(context.Background(), task.ID, models.AllStudents())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, context.DeadlineExceeded)
}

func TestDistributePublishesEvent(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "Ann")
	f.notifier.failText[1] = errors.New("down")

	_, err := f.distribution.BroadcastScheduled(context.Background(), task.ID)
	require.NoError(t, err)

	require.Len(t, f.publisher.distributed, 1)
	event := f.publisher.distributed[0]
	assert.Equal(t, task.ID, event.TaskID)
	assert.Equal(t, TriggerScheduled, event.Trigger)
	assert.Equal(t, []int64{1}, event.FailedIDs)
}

func TestResendUnsubmittedTargetsOnlyMissing(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	f.addStudent(t, 1, "A")
	f.addStudent(t, 2, "B")
	f.addStudent(t, 3, "C")
	f.addSubmission(t, task.ID, 2, time.Now())

	result, err := f.distribution.ResendUnsubmitted(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)

	assert.Empty(t, f.notifier.textsFor(2))
	for _, chatID := range []int64{1, 3} {
		texts := f.notifier.textsFor(chatID)
		require.Len(t, texts, 1)
		assert.True(t, strings.HasPrefix(texts[0], "Reminder: "))
	}
}
