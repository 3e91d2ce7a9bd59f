package models

import "time"

// Student is a registered recipient, keyed by its Telegram chat id.
type Student struct {
	ID           int64     `json:"id" db:"id"`
	ChatID       int64     `json:"chat_id" db:"chat_id"`
	Name         string    `json:"name" db:"name"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}
