package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// LocalArtifactStore keeps artifacts as files under a single directory.
// Handles are paths relative to that directory.
type LocalArtifactStore struct {
	dir    string
	logger zerolog.Logger
}

func NewLocalArtifactStore(dir string, logger zerolog.Logger) (*LocalArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	return &LocalArtifactStore{dir: dir, logger: logger}, nil
}

func (s *LocalArtifactStore) Save(ctx context.Context, name string, r io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	handle := objectKey(name)
	path := filepath.Join(s.dir, handle)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug().Str("handle", handle).Int64("size", n).Msg("Artifact saved")

	return handle, nil
}

func (s *LocalArtifactStore) Open(_ context.Context, handle string) (io.ReadCloser, int64, error) {
	clean := filepath.Clean(handle)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, 0, fmt.Errorf("invalid artifact handle %q", handle)
	}

	f, err := os.Open(filepath.Join(s.dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, ErrArtifactNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open artifact: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat artifact: %w", err)
	}

	return f, info.Size(), nil
}

// objectKey keeps the original extension so the transport can guess a content type.
func objectKey(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	return uuid.New().String() + ext
}
