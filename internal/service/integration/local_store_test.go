package integration

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArtifactStoreRoundTrip(t *testing.T) {
	store, err := NewLocalArtifactStore(filepath.Join(t.TempDir(), "files"), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	handle, err := store.Save(ctx, "Answer.MP4", strings.NewReader("payload"), 7)
	require.NoError(t, err)
	assert.Equal(t, ".mp4", filepath.Ext(handle))

	rc, size, err := store.Open(ctx, handle)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int64(7), size)
}

func TestLocalArtifactStoreOpen(t *testing.T) {
	store, err := NewLocalArtifactStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Open(ctx, "missing.ogg")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, _, err = store.Open(ctx, "../outside.txt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)

	_, _, err = store.Open(ctx, "/etc/passwd")
	assert.Error(t, err)
}

func TestLocalArtifactStoreSaveCancelled(t *testing.T) {
	store, err := NewLocalArtifactStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "a.mp3", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
