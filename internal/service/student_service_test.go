package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.students, zerolog.Nop())
	ctx := context.Background()

	first, created, err := svc.Register(ctx, 10, "Ann")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Register(ctx, 10, "Ann Renamed")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Ann", again.Name)

	students, err := svc.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	_, err = svc.GetStudent(ctx, 11)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}
