package integration

import (
	"context"
	"io"

	"github.com/RubachokBoss/homework-distributor/internal/models"
)

// Notifier delivers text and stored artifacts to a chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendArtifact(ctx context.Context, chatID int64, artifact models.Artifact) error
	SendFile(ctx context.Context, chatID int64, name string, content []byte) error
}

// ArtifactStore persists uploaded blobs and returns opaque handles for them.
type ArtifactStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (handle string, err error)
	Open(ctx context.Context, handle string) (io.ReadCloser, int64, error)
}
