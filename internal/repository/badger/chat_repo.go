package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
)

type ChatRepo struct {
	s *Store
}

func (r *ChatRepo) Create(_ context.Context, chat *domain.Chat) error {
	return r.s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, chatKey(chat.ID), chat); err != nil {
			return err
		}
		for _, userID := range chat.ParticipantIDs {
			if err := txn.Set(userChatKey(userID, chat.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChatRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	var c domain.Chat
	var found bool
	err := r.s.view(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, chatKey(id), &c)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) FindByParticipants(_ context.Context, a, b uuid.UUID) ([]domain.Chat, error) {
	var matches []domain.Chat
	err := r.s.view(func(txn *badger.Txn) error {
		chats, err := chatsOf(txn, a)
		if err != nil {
			return err
		}
		for _, c := range chats {
			if c.IsPair(a, b) {
				matches = append(matches, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	return matches, nil
}

func (r *ChatRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.s.view(func(txn *badger.Txn) error {
		var err error
		chats, err = chatsOf(txn, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].CreatedAt.After(chats[j].CreatedAt)
		}
		return chats[i].ID.String() < chats[j].ID.String()
	})
	return chats, nil
}

// LockPair reads then rewrites a per-pair key, so two transactions creating
// the same direct chat conflict at commit and the loser retries.
func (r *ChatRepo) LockPair(_ context.Context, a, b uuid.UUID) error {
	lo, hi := repository.CanonicalPair(a, b)
	key := pairLockKey(lo, hi)
	return r.s.update(func(txn *badger.Txn) error {
		var n uint64
		item, err := txn.Get(key)
		switch {
		case err == nil:
			err = item.Value(func(val []byte) error {
				if len(val) == 8 {
					n = binary.BigEndian.Uint64(val)
				}
				return nil
			})
			if err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, binary.BigEndian.AppendUint64(nil, n+1))
	})
}

func chatsOf(txn *badger.Txn, userID uuid.UUID) ([]domain.Chat, error) {
	keys := keysWithPrefix(txn, userChatPrefix(userID), false)
	chats := make([]domain.Chat, 0, len(keys))
	for _, k := range keys {
		chatID, err := uuid.Parse(lastSegment(k))
		if err != nil {
			return nil, err
		}
		var c domain.Chat
		found, err := getJSON(txn, chatKey(chatID), &c)
		if err != nil {
			return nil, err
		}
		if found {
			chats = append(chats, c)
		}
	}
	return chats, nil
}
