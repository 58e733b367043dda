package model

import (
	"strconv"
	"time"
)

// Chat is the one conversation between a patient and their physician.
type Chat struct {
	ID          int64 `json:"id" db:"id"`
	PatientID   int64 `json:"patient_id" db:"patient_id"`
	PhysicianID int64 `json:"physician_id" db:"physician_id"`
}

// Room is the realtime broadcast scope of the chat.
func (c Chat) Room() string {
	return ChatRoom(c.ID)
}

func ChatRoom(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

type ChatMessage struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Sender    int64     `json:"sender" db:"sender"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
