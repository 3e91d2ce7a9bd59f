package models

import "time"

type SubmittedStudent struct {
	Student
	SubmittedAt time.Time `json:"submitted_at"`
}

type TaskStats struct {
	TaskID       int64              `json:"task_id"`
	Submitted    []SubmittedStudent `json:"submitted"`
	NotSubmitted []Student          `json:"not_submitted"`
}

// StudentTask is one row of a student's own task list.
type StudentTask struct {
	Task        Task       `json:"task"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}
