package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/bittalk/internal/blob"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/repository"
)

//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_notifier.go -package=mocks

// Notifier broadcasts real-time events to connected clients. It is called
// only after the mutation has committed.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyMessageRead(msg *domain.Message, readerID uuid.UUID)
	NotifyEditedMessage(msg *domain.Message)
	NotifyDeletedMessage(chatID, messageID uuid.UUID)
}

// MaxContentLength caps message content, in characters.
const MaxContentLength = 4000

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 3072

type MessageService struct {
	store    repository.Store
	chats    *ChatService
	blobs    blob.Store
	notifier Notifier
	cache    PreviewCache
	log      *slog.Logger
}

func NewMessageService(store repository.Store, chats *ChatService, blobs blob.Store, log *slog.Logger) *MessageService {
	return &MessageService{
		store: store,
		chats: chats,
		blobs: blobs,
		log:   log,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetPreviewCache sets the cache invalidated after each mutation.
func (s *MessageService) SetPreviewCache(c PreviewCache) {
	s.cache = c
}

type SendMessageInput struct {
	ChatID      *uuid.UUID           `json:"chat_id" validate:"required_without=RecipientID"`
	SenderID    uuid.UUID            `json:"-"`
	RecipientID *uuid.UUID           `json:"recipient_id"`
	Content     string               `json:"content" validate:"max=4000"`
	Status      domain.MessageStatus `json:"status" validate:"omitempty,oneof=sent delivered read"`
	FileIDs     []uuid.UUID          `json:"file_ids"`
}

type SendFileInput struct {
	ChatID      *uuid.UUID
	RecipientID *uuid.UUID
	SenderID    uuid.UUID
	Content     string
	Filename    string
	Body        io.Reader
}

// Send persists a new message. Without a chat id the direct chat with the
// recipient is used, created if needed. Files uploaded earlier to the same
// chat are attached by id.
func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*domain.Message, error) {
	status := input.Status
	if status == "" {
		status = domain.StatusSent
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	fileIDs := lo.Uniq(input.FileIDs)
	if strings.TrimSpace(input.Content) == "" && len(fileIDs) == 0 {
		return nil, ErrEmptyContent
	}
	if err := checkContentLength(input.Content); err != nil {
		return nil, err
	}

	chatID, err := s.resolveChat(ctx, input.SenderID, input.ChatID, input.RecipientID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		ChatID:      chatID,
		SenderID:    input.SenderID,
		RecipientID: input.RecipientID,
		Content:     input.Content,
		Status:      status,
		ReadBy:      []uuid.UUID{},
		IsFile:      len(fileIDs) > 0,
		Files:       []domain.File{},
		CreatedAt:   time.Now(),
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		files := make([]domain.File, 0, len(fileIDs))
		for _, id := range fileIDs {
			f, err := tx.Files().GetByID(ctx, id)
			if err != nil {
				return err
			}
			if f == nil {
				return ErrFileNotFound
			}
			if f.MessageID != nil || f.ChatID != chatID {
				return ErrFileUnavailable
			}
			files = append(files, *f)
		}

		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		for i := range files {
			err := tx.Files().AttachToMessage(ctx, files[i].ID, msg.ID)
			if errors.Is(err, repository.ErrFileAttached) {
				return ErrFileUnavailable
			}
			if err != nil {
				return fmt.Errorf("attaching file %s: %w", files[i].ID, err)
			}
			files[i].MessageID = &msg.ID
		}
		msg.Files = files
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	s.committed(ctx, chatID)
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}
	return msg, nil
}

// SendFile stores the body, then records the file and its message together.
func (s *MessageService) SendFile(ctx context.Context, input SendFileInput) (*domain.Message, *domain.File, error) {
	if err := checkContentLength(input.Content); err != nil {
		return nil, nil, err
	}

	chatID, err := s.resolveChat(ctx, input.SenderID, input.ChatID, input.RecipientID)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.storeBlob(ctx, chatID, input.Filename, input.Body)
	if err != nil {
		return nil, nil, err
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		ChatID:      chatID,
		SenderID:    input.SenderID,
		RecipientID: input.RecipientID,
		Content:     input.Content,
		Status:      domain.StatusSent,
		ReadBy:      []uuid.UUID{},
		IsFile:      true,
		CreatedAt:   time.Now(),
	}
	file.MessageID = &msg.ID
	msg.Files = []domain.File{*file}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		return tx.Files().Create(ctx, file)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating file message: %w", err)
	}

	s.committed(ctx, chatID)
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}
	return msg, file, nil
}

// UploadFile stores the body and records an unattached file in the chat.
func (s *MessageService) UploadFile(ctx context.Context, userID, chatID uuid.UUID, filename string, body io.Reader) (*domain.File, error) {
	if err := s.chats.CheckParticipant(ctx, userID, chatID); err != nil {
		return nil, err
	}

	file, err := s.storeBlob(ctx, chatID, filename, body)
	if err != nil {
		return nil, err
	}
	if err := s.store.Files().Create(ctx, file); err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	return file, nil
}

// GetFile returns a file of a chat the user participates in.
func (s *MessageService) GetFile(ctx context.Context, userID, fileID uuid.UUID) (*domain.File, error) {
	file, err := s.store.Files().GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}
	if err := s.chats.CheckParticipant(ctx, userID, file.ChatID); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *MessageService) storeBlob(ctx context.Context, chatID uuid.UUID, filename string, body io.Reader) (*domain.File, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	head = head[:n]

	obj, err := s.blobs.Put(ctx, filename, io.MultiReader(bytes.NewReader(head), body))
	if err != nil {
		return nil, fmt.Errorf("storing blob: %w", err)
	}

	return &domain.File{
		ID:          uuid.New(),
		Filename:    filename,
		FilePath:    obj.Path,
		ContentType: mimetype.Detect(head).String(),
		Size:        obj.Size,
		ChatID:      chatID,
		CreatedAt:   time.Now(),
	}, nil
}

// MarkRead adds userID, a participant of the message's chat, to its
// readers. Marking twice is a no-op but still broadcasts the current set.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error) {
	var msg *domain.Message
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		msg, err = tx.Messages().GetByIDForUpdate(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return ErrMessageNotFound
		}
		if err := s.chats.CheckParticipant(ctx, userID, msg.ChatID); err != nil {
			return err
		}
		if msg.HasReader(userID) {
			return nil
		}
		if err := tx.Messages().AddReader(ctx, messageID, userID); err != nil {
			return err
		}
		// Reload so the broadcast carries every committed reader.
		msg, err = tx.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return ErrMessageNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("marking message read: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMessageRead(msg, userID)
	}
	return msg, nil
}

func (s *MessageService) Edit(ctx context.Context, actorID, messageID uuid.UUID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if err := checkContentLength(content); err != nil {
		return nil, err
	}

	var msg *domain.Message
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		msg, err = s.ownedMessage(ctx, tx, actorID, messageID)
		if err != nil {
			return err
		}

		editedAt := time.Now()
		if err := tx.Messages().UpdateContent(ctx, messageID, content, editedAt); err != nil {
			return err
		}
		msg.Content = content
		msg.EditedAt = &editedAt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	s.committed(ctx, msg.ChatID)
	if s.notifier != nil {
		s.notifier.NotifyEditedMessage(msg)
	}
	return msg, nil
}

func (s *MessageService) Delete(ctx context.Context, actorID, messageID uuid.UUID) error {
	var msg *domain.Message
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		msg, err = s.ownedMessage(ctx, tx, actorID, messageID)
		if err != nil {
			return err
		}
		return tx.Messages().Delete(ctx, messageID)
	})
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	s.committed(ctx, msg.ChatID)
	if s.notifier != nil {
		s.notifier.NotifyDeletedMessage(msg.ChatID, messageID)
	}
	return nil
}

// Forward copies the content of a message into another chat as a new
// message from actorID. Only the original sender or recipient may forward,
// and only into a chat they participate in.
func (s *MessageService) Forward(ctx context.Context, actorID, messageID, targetChatID uuid.UUID) (*domain.Message, error) {
	fwd := &domain.Message{
		ID:        uuid.New(),
		ChatID:    targetChatID,
		SenderID:  actorID,
		Status:    domain.StatusSent,
		ReadBy:    []uuid.UUID{},
		Files:     []domain.File{},
		CreatedAt: time.Now(),
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		src, err := tx.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if src == nil {
			return ErrMessageNotFound
		}
		if src.SenderID != actorID && (src.RecipientID == nil || *src.RecipientID != actorID) {
			return ErrCannotForward
		}

		if err := s.chats.CheckParticipant(ctx, actorID, targetChatID); err != nil {
			return err
		}

		fwd.Content = src.Content
		return tx.Messages().Create(ctx, fwd)
	})
	if err != nil {
		return nil, fmt.Errorf("forwarding message: %w", err)
	}

	s.committed(ctx, targetChatID)
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(fwd)
	}
	return fwd, nil
}

// ListMessages returns a chat's messages in chronological order.
func (s *MessageService) ListMessages(ctx context.Context, userID, chatID uuid.UUID) ([]domain.Message, error) {
	if err := s.chats.CheckParticipant(ctx, userID, chatID); err != nil {
		return nil, err
	}

	messages, err := s.store.Messages().ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

func checkContentLength(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

func (s *MessageService) resolveChat(ctx context.Context, senderID uuid.UUID, chatID, recipientID *uuid.UUID) (uuid.UUID, error) {
	if chatID == nil {
		if recipientID == nil {
			return uuid.Nil, ErrNoChatTarget
		}
		chat, err := s.chats.GetOrCreateDirectChat(ctx, senderID, *recipientID)
		if err != nil {
			return uuid.Nil, err
		}
		return chat.ID, nil
	}

	if err := s.chats.CheckParticipant(ctx, senderID, *chatID); err != nil {
		return uuid.Nil, err
	}
	return *chatID, nil
}

func (s *MessageService) ownedMessage(ctx context.Context, tx repository.Store, actorID, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := tx.Messages().GetByIDForUpdate(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID != actorID {
		return nil, ErrNotMessageOwner
	}
	return msg, nil
}

// committed drops the cached preview of a chat whose messages changed.
func (s *MessageService) committed(ctx context.Context, chatID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, chatID)
	}
}
