package models

type TaskDistributedEvent struct {
	TaskID    int64   `json:"task_id"`
	Trigger   string  `json:"trigger"` // manual, scheduled, reminder
	Delivered int     `json:"delivered"`
	Failed    int     `json:"failed"`
	FailedIDs []int64 `json:"failed_chat_ids,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

type SubmissionReceivedEvent struct {
	SubmissionID  int64  `json:"submission_id"`
	TaskID        int64  `json:"task_id"`
	StudentChatID int64  `json:"student_chat_id"`
	FileType      string `json:"file_type"`
	Timestamp     int64  `json:"timestamp"`
}
