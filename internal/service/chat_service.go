package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
	"golang.org/x/sync/singleflight"
)

//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_preview_cache.go -package=mocks

// NoMessagesPreview is the chat list preview of a chat without messages.
const NoMessagesPreview = "No messages"

// PreviewCache caches the last-message preview of a chat. Implementations
// swallow their own failures; a miss falls back to the store.
type PreviewCache interface {
	Get(ctx context.Context, chatID uuid.UUID) (string, bool)
	Set(ctx context.Context, chatID uuid.UUID, preview string)
	Invalidate(ctx context.Context, chatID uuid.UUID)
}

type ChatService struct {
	store repository.Store
	cache PreviewCache
	pairs singleflight.Group
	log   *slog.Logger
}

func NewChatService(store repository.Store, log *slog.Logger) *ChatService {
	return &ChatService{store: store, log: log}
}

// SetPreviewCache sets the chat list preview cache (optional dependency).
func (s *ChatService) SetPreviewCache(c PreviewCache) {
	s.cache = c
}

// CreateChat creates a chat with the given participants. Ids that do not
// resolve to a user are skipped; duplicates collapse to their first position.
func (s *ChatService) CreateChat(ctx context.Context, name string, participantIDs []uuid.UUID) (*domain.Chat, error) {
	chat := &domain.Chat{
		ID:             uuid.New(),
		Name:           name,
		ParticipantIDs: []uuid.UUID{},
		CreatedAt:      time.Now(),
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		chat.ParticipantIDs = chat.ParticipantIDs[:0]
		for _, id := range lo.Uniq(participantIDs) {
			user, err := tx.Users().GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("resolving participant %s: %w", id, err)
			}
			if user == nil {
				s.log.Debug("skipping unknown participant", "chat_id", chat.ID, "user_id", id)
				continue
			}
			chat.ParticipantIDs = append(chat.ParticipantIDs, id)
		}
		return tx.Chats().Create(ctx, chat)
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	return chat, nil
}

// GetOrCreateDirectChat returns the chat whose participants are exactly
// {a, b}, creating it when none exists. Concurrent calls for the same pair
// share one lookup in-process and serialize on the store's pair lock.
func (s *ChatService) GetOrCreateDirectChat(ctx context.Context, a, b uuid.UUID) (*domain.Chat, error) {
	if a == b {
		return nil, ErrCannotChatSelf
	}

	first, second := repository.CanonicalPair(a, b)
	// Waiters share the call, so one caller's cancellation must not fail it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.pairs.Do(first.String()+":"+second.String(), func() (any, error) {
		return s.getOrCreateDirectChat(shared, first, second)
	})
	if err != nil {
		return nil, err
	}
	chat := *v.(*domain.Chat)
	return &chat, nil
}

func (s *ChatService) getOrCreateDirectChat(ctx context.Context, a, b uuid.UUID) (*domain.Chat, error) {
	for _, id := range []uuid.UUID{a, b} {
		user, err := s.store.Users().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}

	var chat *domain.Chat
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		chat = nil
		if err := tx.Chats().LockPair(ctx, a, b); err != nil {
			return fmt.Errorf("locking pair: %w", err)
		}

		existing, err := tx.Chats().FindByParticipants(ctx, a, b)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			if len(existing) > 1 {
				s.log.Warn("multiple direct chats for pair", "user_a", a, "user_b", b, "count", len(existing))
			}
			chat = &existing[0]
			return nil
		}

		chat = &domain.Chat{
			ID:             uuid.New(),
			Name:           fmt.Sprintf("Chat between %s and %s", a, b),
			ParticipantIDs: []uuid.UUID{a, b},
			CreatedAt:      time.Now(),
		}
		return tx.Chats().Create(ctx, chat)
	})
	if err != nil {
		return nil, fmt.Errorf("getting direct chat: %w", err)
	}
	return chat, nil
}

// ListChatsForUser returns the user's chats newest first. Two-participant
// chats are named after the peer.
func (s *ChatService) ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]domain.ChatSummary, error) {
	chats, err := s.store.Chats().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	chats = lo.UniqBy(chats, func(c domain.Chat) uuid.UUID { return c.ID })

	summaries := make([]domain.ChatSummary, 0, len(chats))
	for _, c := range chats {
		name, err := s.displayName(ctx, &c, userID)
		if err != nil {
			return nil, err
		}
		preview, err := s.preview(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.ChatSummary{
			ID:          c.ID,
			Name:        name,
			LastMessage: preview,
			CreatedAt:   c.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *ChatService) displayName(ctx context.Context, c *domain.Chat, viewer uuid.UUID) (string, error) {
	if len(c.ParticipantIDs) != 2 {
		return c.Name, nil
	}
	peerID, ok := lo.Find(c.ParticipantIDs, func(id uuid.UUID) bool { return id != viewer })
	if !ok {
		return c.Name, nil
	}
	peer, err := s.store.Users().GetByID(ctx, peerID)
	if err != nil {
		return "", fmt.Errorf("resolving peer: %w", err)
	}
	if peer == nil {
		return c.Name, nil
	}
	return peer.Name, nil
}

func (s *ChatService) preview(ctx context.Context, chatID uuid.UUID) (string, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, chatID); ok {
			return p, nil
		}
	}

	last, err := s.store.Messages().LastInChat(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("loading last message: %w", err)
	}
	p := NoMessagesPreview
	if last != nil {
		p = last.Content
	}

	if s.cache != nil {
		s.cache.Set(ctx, chatID, p)
	}
	return p, nil
}

// GetChat returns the chat with its messages.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID uuid.UUID) (*domain.ChatDetail, error) {
	chat, err := s.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.Messages().ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &domain.ChatDetail{Chat: *chat, Messages: messages}, nil
}

// CheckParticipant fails with ErrChatNotFound or ErrNotParticipant.
func (s *ChatService) CheckParticipant(ctx context.Context, userID, chatID uuid.UUID) error {
	_, err := s.participantChat(ctx, userID, chatID)
	return err
}

func (s *ChatService) participantChat(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.store.Chats().GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}
