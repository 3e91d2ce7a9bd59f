package service

import (
	"context"
	"testing"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeWithoutTeacher(t *testing.T) {
	f := newFixture(t)
	access := NewAccessService(f.settings, 0, zerolog.Nop())

	err := access.Authorize(context.Background(), 5)
	assert.ErrorIs(t, err, ErrTeacherNotConfigured)
}

func TestSetTeacherThenAuthorize(t *testing.T) {
	f := newFixture(t)
	access := NewAccessService(f.settings, 0, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, access.SetTeacher(ctx, 5))

	assert.NoError(t, access.Authorize(ctx, 5))
	assert.ErrorIs(t, access.Authorize(ctx, 6), ErrUnauthorized)

	isTeacher, err := access.IsTeacher(ctx, 5)
	require.NoError(t, err)
	assert.True(t, isTeacher)
}

func TestStaticTeacherTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	access := NewAccessService(f.settings, 42, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, access.SetTeacher(ctx, 5))

	id, ok, err := access.TeacherID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.ErrorIs(t, access.Authorize(ctx, 5), ErrUnauthorized)
}

func TestCorruptStoredTeacherIsTreatedAsUnset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.settings.Set(ctx, models.SettingTeacherChatID, "not-a-number"))
	access := NewAccessService(f.settings, 0, zerolog.Nop())

	assert.ErrorIs(t, access.Authorize(ctx, 5), ErrTeacherNotConfigured)
}
