package models

import "io"

// Data Transfer Objects

// Upload is a file received from a transport, not yet stored.
type Upload struct {
	FileName string
	Kind     MediaKind
	Size     int64
	Content  io.Reader
}

type CreateTaskRequest struct {
	Title       string
	Description string
	Upload      Upload
}

type InboundSubmission struct {
	SenderChatID int64
	SenderName   string
	Caption      string
	// ReplyText is the text of the message the sender replied to, if any.
	ReplyText string
	Upload    Upload
}

type ScheduleRequest struct {
	Cron string `json:"cron"`
}

type ScheduleResponse struct {
	TaskID  int64  `json:"task_id"`
	Cron    string `json:"cron"`
	NextRun string `json:"next_run,omitempty"`
}

type DistributeRequest struct {
	// Target is "all" or a chat id.
	Target string `json:"target"`
}

type RegisterStudentRequest struct {
	ChatID int64  `json:"chat_id"`
	Name   string `json:"name"`
}
