package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
)

type MessageRepo struct {
	s *Store
}

// Attachments live in the msg-file index, never inline.
func putMessage(txn *badger.Txn, msg domain.Message) error {
	msg.Files = nil
	return setJSON(txn, msgKey(msg.ID), msg)
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	return r.s.update(func(txn *badger.Txn) error {
		if err := putMessage(txn, *msg); err != nil {
			return err
		}
		return txn.Set(chatMsgKey(msg.ChatID, msg.CreatedAt, msg.ID), nil)
	})
}

func (r *MessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	var msg *domain.Message
	err := r.s.view(func(txn *badger.Txn) error {
		var err error
		msg, err = loadMessage(txn, id)
		return err
	})
	return msg, err
}

// GetByIDForUpdate needs no explicit lock: a concurrent write to the message
// key makes the enclosing transaction conflict and retry.
func (r *MessageRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return r.GetByID(ctx, id)
}

func (r *MessageRepo) ListByChat(_ context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.s.view(func(txn *badger.Txn) error {
		for _, k := range keysWithPrefix(txn, chatMsgPrefix(chatID), false) {
			id, err := uuid.Parse(lastSegment(k))
			if err != nil {
				return err
			}
			msg, err := loadMessage(txn, id)
			if err != nil {
				return err
			}
			if msg != nil {
				messages = append(messages, *msg)
			}
		}
		return nil
	})
	return messages, err
}

func (r *MessageRepo) LastInChat(_ context.Context, chatID uuid.UUID) (*domain.Message, error) {
	var msg *domain.Message
	err := r.s.view(func(txn *badger.Txn) error {
		for _, k := range keysWithPrefix(txn, chatMsgPrefix(chatID), true) {
			id, err := uuid.Parse(lastSegment(k))
			if err != nil {
				return err
			}
			if msg, err = loadMessage(txn, id); err != nil || msg != nil {
				return err
			}
		}
		return nil
	})
	return msg, err
}

func (r *MessageRepo) UpdateContent(_ context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	return r.modify(id, func(msg *domain.Message) bool {
		msg.Content = content
		msg.EditedAt = &editedAt
		return true
	})
}

func (r *MessageRepo) AddReader(_ context.Context, id, userID uuid.UUID) error {
	return r.modify(id, func(msg *domain.Message) bool {
		if msg.HasReader(userID) {
			return false
		}
		msg.ReadBy = append(msg.ReadBy, userID)
		return true
	})
}

func (r *MessageRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.s.update(func(txn *badger.Txn) error {
		var msg domain.Message
		found, err := getJSON(txn, msgKey(id), &msg)
		if err != nil || !found {
			return err
		}

		// Attached files outlive the message, detached.
		for _, k := range keysWithPrefix(txn, msgFilePrefix(id), false) {
			fileID, err := uuid.Parse(lastSegment(k))
			if err != nil {
				return err
			}
			var f domain.File
			found, err := getJSON(txn, fileKey(fileID), &f)
			if err != nil {
				return err
			}
			if found {
				f.MessageID = nil
				if err := setJSON(txn, fileKey(fileID), f); err != nil {
					return err
				}
			}
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		if err := txn.Delete(chatMsgKey(msg.ChatID, msg.CreatedAt, msg.ID)); err != nil {
			return err
		}
		return txn.Delete(msgKey(id))
	})
}

// modify applies fn to the stored message and writes it back when fn
// reports a change. A missing message is a no-op.
func (r *MessageRepo) modify(id uuid.UUID, fn func(msg *domain.Message) bool) error {
	return r.s.update(func(txn *badger.Txn) error {
		var msg domain.Message
		found, err := getJSON(txn, msgKey(id), &msg)
		if err != nil {
			return fmt.Errorf("loading message %s: %w", id, err)
		}
		if !found || !fn(&msg) {
			return nil
		}
		return putMessage(txn, msg)
	})
}

func loadMessage(txn *badger.Txn, id uuid.UUID) (*domain.Message, error) {
	var msg domain.Message
	found, err := getJSON(txn, msgKey(id), &msg)
	if err != nil || !found {
		return nil, err
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []uuid.UUID{}
	}
	if msg.Files, err = filesOf(txn, id); err != nil {
		return nil, err
	}
	return &msg, nil
}
