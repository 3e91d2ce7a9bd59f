package models

const SettingTeacherChatID = "teacher_chat_id"

type Setting struct {
	Key   string `json:"key" db:"key"`
	Value string `json:"value" db:"value"`
}
