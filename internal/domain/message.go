package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}

type Message struct {
	ID          uuid.UUID     `json:"id"`
	ChatID      uuid.UUID     `json:"chat_id"`
	SenderID    uuid.UUID     `json:"sender_id"`
	RecipientID *uuid.UUID    `json:"recipient_id"`
	Content     string        `json:"content"`
	Status      MessageStatus `json:"status"`
	ReadBy      []uuid.UUID   `json:"read_by"`
	EditedAt    *time.Time    `json:"edited_at"`
	IsFile      bool          `json:"is_file"`
	Files       []File        `json:"files"`
	CreatedAt   time.Time     `json:"created_at"`
}

// HasReader reports whether userID is already in read_by.
func (m *Message) HasReader(userID uuid.UUID) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

type File struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	FilePath    string     `json:"file_path"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	ChatID      uuid.UUID  `json:"chat_id"`
	MessageID   *uuid.UUID `json:"message_id"`
	CreatedAt   time.Time  `json:"created_at"`
}
