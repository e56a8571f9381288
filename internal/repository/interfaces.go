package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
)

// Lookups return nil, nil when the entity does not exist.

// ErrFileAttached is returned when a file already belongs to another message.
var ErrFileAttached = errors.New("file already attached to a message")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Search returns up to limit users whose name contains query, ignoring
	// case, ordered by name.
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
}

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	// FindByParticipants returns chats whose participant set is exactly {a, b},
	// oldest first.
	FindByParticipants(ctx context.Context, a, b uuid.UUID) ([]domain.Chat, error)
	// ListByUser returns the chats userID participates in, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	// LockPair serializes direct chat creation for the unordered pair until
	// the enclosing transaction ends.
	LockPair(ctx context.Context, a, b uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// GetByIDForUpdate is GetByID that also locks the message against
	// concurrent writers until the enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListByChat returns the chat's messages in chronological order.
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error)
	LastInChat(ctx context.Context, chatID uuid.UUID) (*domain.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error
	// AddReader appends userID to read_by unless it is already present.
	AddReader(ctx context.Context, id, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
	// AttachToMessage claims an unattached file for messageID. It fails with
	// ErrFileAttached when another message owns the file.
	AttachToMessage(ctx context.Context, fileID, messageID uuid.UUID) error
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.File, error)
}

// Store groups the repositories and scopes work in a transaction.
type Store interface {
	Users() UserRepository
	Chats() ChatRepository
	Messages() MessageRepository
	Files() FileRepository
	// WithTx runs fn inside a transaction. Returning an error rolls back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// CanonicalPair orders two ids so the same unordered pair always yields the
// same result.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
