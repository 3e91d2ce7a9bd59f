package models

import "time"

type Submission struct {
	ID            int64     `json:"id" db:"id"`
	TaskID        int64     `json:"task_id" db:"task_id"`
	StudentChatID int64     `json:"student_chat_id" db:"student_chat_id"`
	Artifact      Artifact  `json:"artifact"`
	SubmittedAt   time.Time `json:"submitted_at" db:"submitted_at"`
}

// SubmissionMark is the latest submission time of one student for one task.
type SubmissionMark struct {
	StudentChatID int64     `json:"student_chat_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
