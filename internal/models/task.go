package models

import (
	"fmt"
	"time"
)

type MediaKind string

const (
	MediaKindVideo    MediaKind = "video"
	MediaKindAudio    MediaKind = "audio"
	MediaKindVoice    MediaKind = "voice"
	MediaKindDocument MediaKind = "document"
)

func (k MediaKind) String() string {
	return string(k)
}

func IsValidMediaKind(kind string) bool {
	switch MediaKind(kind) {
	case MediaKindVideo, MediaKindAudio, MediaKindVoice, MediaKindDocument:
		return true
	default:
		return false
	}
}

// Artifact points at a stored blob. Handle is opaque to everything except the artifact store.
type Artifact struct {
	Handle string    `json:"file_path"`
	Kind   MediaKind `json:"file_type"`
}

type Task struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Artifact    Artifact  `json:"artifact"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	// ScheduledCron is empty when the task is distributed manually only.
	ScheduledCron string `json:"scheduled_cron,omitempty" db:"scheduled_cron"`
}

func (t *Task) IsScheduled() bool {
	return t.ScheduledCron != ""
}

// Announcement renders the text sent ahead of the artifact.
func (t *Task) Announcement() string {
	return fmt.Sprintf(
		"Task ID: %d\nTitle: %s\n%s\nReply with file and caption \"task: %d\" to submit.",
		t.ID, t.Title, t.Description, t.ID,
	)
}

// Reminder renders the announcement used when resending to students without a submission.
func (t *Task) Reminder() string {
	return "Reminder: " + t.Announcement()
}
