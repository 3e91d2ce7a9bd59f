package memory

import (
	"context"
	"testing"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentUpsertIsIdempotent(t *testing.T) {
	db := Open()
	repo := NewStudentRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, &models.Student{ChatID: 7, Name: "Ann"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Upsert(ctx, &models.Student{ChatID: 7, Name: "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ann", all[0].Name)
}

func TestTaskIDsAreMonotonic(t *testing.T) {
	repo := NewTaskRepository(Open())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		task := &models.Task{Title: "t"}
		require.NoError(t, repo.Create(ctx, task))
		assert.Equal(t, want, task.ID)
	}

	_, err := repo.GetByID(ctx, 4)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateSchedule(ctx, 4, "0 18 * * *"), repository.ErrNotFound)
}

func TestScheduledTasks(t *testing.T) {
	repo := NewTaskRepository(Open())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Task{Title: "a"}))
	require.NoError(t, repo.Create(ctx, &models.Task{Title: "b"}))
	require.NoError(t, repo.UpdateSchedule(ctx, 2, "0 18 * * *"))

	scheduled, err := repo.GetScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, int64(2), scheduled[0].ID)

	require.NoError(t, repo.UpdateSchedule(ctx, 2, ""))
	scheduled, err = repo.GetScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func TestSubmissionReferentialIntegrity(t *testing.T) {
	db := Open()
	ctx := context.Background()
	require.NoError(t, NewTaskRepository(db).Create(ctx, &models.Task{Title: "a"}))
	_, err := NewStudentRepository(db).Upsert(ctx, &models.Student{ChatID: 1})
	require.NoError(t, err)
	subs := NewSubmissionRepository(db)

	assert.ErrorIs(t, subs.Create(ctx, &models.Submission{TaskID: 2, StudentChatID: 1}), repository.ErrNotFound)
	assert.ErrorIs(t, subs.Create(ctx, &models.Submission{TaskID: 1, StudentChatID: 2}), repository.ErrNotFound)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, subs.Create(ctx, &models.Submission{TaskID: 1, StudentChatID: 1, SubmittedAt: base.Add(time.Hour)}))
	require.NoError(t, subs.Create(ctx, &models.Submission{TaskID: 1, StudentChatID: 1, SubmittedAt: base}))

	ids, err := subs.GetSubmittedStudents(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	marks, err := subs.GetLatestByTask(ctx, 1)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, base.Add(time.Hour), marks[0].SubmittedAt)

	all, err := subs.GetByTask(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSettings(t *testing.T) {
	repo := NewSettingRepository(Open())
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, models.SettingTeacherChatID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, models.SettingTeacherChatID, "1"))
	require.NoError(t, repo.Set(ctx, models.SettingTeacherChatID, "2"))

	v, ok, err := repo.Get(ctx, models.SettingTeacherChatID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}
