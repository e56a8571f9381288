package service_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/mocks"
	badgerstore "github.com/vedran77/bittalk/internal/repository/badger"
	"github.com/vedran77/bittalk/internal/service"
	"go.uber.org/mock/gomock"
)

type testEnv struct {
	store    *badgerstore.Store
	chats    *service.ChatService
	messages *service.MessageService
	notifier *mocks.MockNotifier
	blobs    *mocks.MockStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctrl := gomock.NewController(t)
	log := slog.New(slog.DiscardHandler)
	store := badgerstore.NewStore(db)
	blobs := mocks.NewMockStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	chats := service.NewChatService(store, log)
	messages := service.NewMessageService(store, chats, blobs, log)
	messages.SetNotifier(notifier)

	return &testEnv{store: store, chats: chats, messages: messages, notifier: notifier, blobs: blobs}
}

func (e *testEnv) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Name: name, Email: name + "-" + uuid.NewString()[:8] + "@example.com", CreatedAt: time.Now()}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u.ID
}

func (e *testEnv) chat(t *testing.T, name string, users ...uuid.UUID) *domain.Chat {
	t.Helper()
	c, err := e.chats.CreateChat(context.Background(), name, users)
	require.NoError(t, err)
	return c
}

// send posts a text message without asserting on the notifier.
func (e *testEnv) send(t *testing.T, chatID, sender uuid.UUID, recipient *uuid.UUID, content string) *domain.Message {
	t.Helper()
	e.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Times(1)
	msg, err := e.messages.Send(context.Background(), service.SendMessageInput{
		ChatID:      &chatID,
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
	})
	require.NoError(t, err)
	return msg
}
