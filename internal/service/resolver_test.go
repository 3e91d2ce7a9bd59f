package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskReference(t *testing.T) {
	tests := []struct {
		name      string
		caption   string
		replyText string
		wantID    int64
		wantOK    bool
	}{
		{name: "caption with trailing words", caption: "task: 7 extra words", wantID: 7, wantOK: true},
		{name: "caption is case insensitive", caption: "My answer TASK:12", wantID: 12, wantOK: true},
		{name: "reply text first numeric token", replyText: "Task ID: 7 Title: Lesson", wantID: 7, wantOK: true},
		{name: "caption wins over reply", caption: "task: 3", replyText: "Task ID: 9", wantID: 3, wantOK: true},
		{name: "unparseable caption falls back to reply", caption: "task: abc", replyText: "Task ID: 5", wantID: 5, wantOK: true},
		{name: "caption without marker", caption: "hello"},
		{name: "marker without id", caption: "task:"},
		{name: "zero id ignored", caption: "task: 0"},
		{name: "negative id ignored", caption: "task: -4"},
		{name: "reply without numbers", replyText: "see you tomorrow"},
		{name: "reply token with suffix is not numeric", replyText: "Task 7: Lesson"},
		{name: "nothing at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseTaskReference(tt.caption, tt.replyText)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSubmissionResolverValidatesTask(t *testing.T) {
	f := newFixture(t)
	task := f.addTask(t, "Lesson")
	resolver := NewSubmissionResolver(f.tasks, zerolog.Nop())
	ctx := context.Background()

	id, err := resolver.Resolve(ctx, "task: 1", "")
	require.NoError(t, err)
	assert.Equal(t, task.ID, id)

	_, err = resolver.Resolve(ctx, "task: 99", "")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = resolver.Resolve(ctx, "hello", "")
	assert.ErrorIs(t, err, ErrAmbiguousSubmission)
}
