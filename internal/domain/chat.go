package domain

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	CreatedAt      time.Time   `json:"created_at"`
}

// HasParticipant reports whether userID is one of the chat participants.
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsPair reports whether the participant set is exactly {a, b}.
func (c *Chat) IsPair(a, b uuid.UUID) bool {
	if len(c.ParticipantIDs) != 2 {
		return false
	}
	p, q := c.ParticipantIDs[0], c.ParticipantIDs[1]
	return (p == a && q == b) || (p == b && q == a)
}

// ChatSummary is a row of a user's chat list.
type ChatSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatDetail is a chat together with its messages in chronological order.
type ChatDetail struct {
	Chat
	Messages []Message `json:"messages"`
}
