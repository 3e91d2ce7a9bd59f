package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/RubachokBoss/homework-distributor/internal/repository/memory"
	"github.com/RubachokBoss/homework-distributor/internal/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu           sync.Mutex
	texts        map[int64][]string
	artifacts    map[int64][]models.Artifact
	files        map[int64][]string
	failText     map[int64]error
	failArtifact map[int64]error
	// block makes sends to these chats wait for ctx to end.
	block map[int64]bool
	// panicArtifact makes artifact sends to these chats panic.
	panicArtifact map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		texts:        make(map[int64][]string),
		artifacts:    make(map[int64][]models.Artifact),
		files:        make(map[int64][]string),
		failText:     make(map[int64]error),
		failArtifact: make(map[int64]error),
		block:        make(map[int64]bool),

		panicArtifact: make(map[int64]bool),
	}
}

func (n *fakeNotifier) SendText(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	blocked := n.block[chatID]
	n.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failText[chatID]; err != nil {
		return err
	}
	n.texts[chatID] = append(n.texts[chatID], text)
	return nil
}

func (n *fakeNotifier) SendArtifact(_ context.Context, chatID int64, artifact models.Artifact) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panicArtifact[chatID] {
		panic(fmt.Sprintf("artifact send to %d", chatID))
	}
	if err := n.failArtifact[chatID]; err != nil {
		return err
	}
	n.artifacts[chatID] = append(n.artifacts[chatID], artifact)
	return nil
}

func (n *fakeNotifier) SendFile(_ context.Context, chatID int64, name string, _ []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.files[chatID] = append(n.files[chatID], name)
	return nil
}

func (n *fakeNotifier) textsFor(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts[chatID]...)
}

func (n *fakeNotifier) artifactsFor(chatID int64) []models.Artifact {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Artifact(nil), n.artifacts[chatID]...)
}

type fakeStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	seq   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (s *fakeStore) Save(_ context.Context, name string, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	handle := fmt.Sprintf("%d-%s", s.seq, name)
	s.blobs[handle] = data
	return handle, nil
}

func (s *fakeStore) Open(_ context.Context, handle string) (io.ReadCloser, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[handle]
	if !ok {
		return nil, 0, fmt.Errorf("no blob %q", handle)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

type fakePublisher struct {
	mu          sync.Mutex
	distributed []models.TaskDistributedEvent
	received    []models.SubmissionReceivedEvent
}

func (p *fakePublisher) PublishTaskDistributed(_ context.Context, e *models.TaskDistributedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.distributed = append(p.distributed, *e)
	return nil
}

func (p *fakePublisher) PublishSubmissionReceived(_ context.Context, e *models.SubmissionReceivedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, *e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fixture struct {
	students    repository.StudentRepository
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	settings    repository.SettingRepository

	notifier  *fakeNotifier
	store     *fakeStore
	publisher *fakePublisher
	pool      *worker.WorkerPool

	stats        StatsService
	distribution DistributionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memory.Open()
	log := zerolog.Nop()

	f := &fixture{
		students:    memory.NewStudentRepository(db),
		tasks:       memory.NewTaskRepository(db),
		submissions: memory.NewSubmissionRepository(db),
		settings:    memory.NewSettingRepository(db),
		notifier:    newFakeNotifier(),
		store:       newFakeStore(),
		publisher:   &fakePublisher{},
		pool:        worker.NewWorkerPool(4, 16, log),
	}
	f.pool.Start()
	t.Cleanup(f.pool.Stop)

	f.stats = NewStatsService(f.tasks, f.students, f.submissions, log)
	f.distribution = NewDistributionService(
		f.tasks, f.students, f.stats, f.notifier, f.publisher, f.pool, time.Second, log,
	)
	return f
}

func (f *fixture) addStudent(t *testing.T, chatID int64, name string) {
	t.Helper()
	_, err := f.students.Upsert(context.Background(), &models.Student{
		ChatID:       chatID,
		Name:         name,
		RegisteredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func (f *fixture) addTask(t *testing.T, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:       title,
		Description: "description of " + title,
		Artifact:    models.Artifact{Handle: strings.ToLower(title) + ".mp4", Kind: models.MediaKindVideo},
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func (f *fixture) addSubmission(t *testing.T, taskID, chatID int64, at time.Time) {
	t.Helper()
	require.NoError(t, f.submissions.Create(context.Background(), &models.Submission{
		TaskID:        taskID,
		StudentChatID: chatID,
		Artifact:      models.Artifact{Handle: "answer.ogg", Kind: models.MediaKindVoice},
		SubmittedAt:   at,
	}))
}
