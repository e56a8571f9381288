package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/bittalk/internal/blob"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/mocks"
	"github.com/vedran77/bittalk/internal/service"
	"go.uber.org/mock/gomock"
)

func putOK(path string) func(context.Context, string, io.Reader) (blob.Object, error) {
	return func(_ context.Context, _ string, r io.Reader) (blob.Object, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return blob.Object{}, err
		}
		return blob.Object{Path: path, Size: int64(len(b))}, nil
	}
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and broadcast", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice, bob := env.user(t, "alice"), env.user(t, "bob")
		chat := env.chat(t, "pair", alice, bob)

		var notified *domain.Message
		env.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Do(func(m *domain.Message) { notified = m }).Times(1)

		msg, err := env.messages.Send(ctx, service.SendMessageInput{ChatID: &chat.ID, SenderID: alice, RecipientID: &bob, Content: "hello"})

		req.NoError(err)
		req.Equal(domain.StatusSent, msg.Status)
		req.Empty(msg.ReadBy)
		req.False(msg.IsFile)
		req.Equal(msg.ID, notified.ID)

		stored, err := env.store.Messages().GetByID(ctx, msg.ID)
		req.NoError(err)
		req.Equal("hello", stored.Content)
		req.Equal(bob, *stored.RecipientID)
	})

	t.Run("direct chat resolved from recipient", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice, bob := env.user(t, "alice"), env.user(t, "bob")
		env.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Times(2)

		first, err := env.messages.Send(ctx, service.SendMessageInput{SenderID: alice, RecipientID: &bob, Content: "one"})
		req.NoError(err)
		second, err := env.messages.Send(ctx, service.SendMessageInput{SenderID: bob, RecipientID: &alice, Content: "two"})
		req.NoError(err)

		req.Equal(first.ChatID, second.ChatID)
	})

	t.Run("attaches uploaded files", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice, bob := env.user(t, "alice"), env.user(t, "bob")
		chat := env.chat(t, "pair", alice, bob)
		env.blobs.EXPECT().Put(gomock.Any(), "notes.txt", gomock.Any()).DoAndReturn(putOK("blobs/notes.txt")).Times(1)

		file, err := env.messages.UploadFile(ctx, alice, chat.ID, "notes.txt", strings.NewReader("plain text body"))
		req.NoError(err)
		req.Nil(file.MessageID)
		req.Equal(int64(15), file.Size)
		req.True(strings.HasPrefix(file.ContentType, "text/plain"))

		env.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Times(1)
		msg, err := env.messages.Send(ctx, service.SendMessageInput{ChatID: &chat.ID, SenderID: alice, FileIDs: []uuid.UUID{file.ID}})

		req.NoError(err)
		req.True(msg.IsFile)
		req.Len(msg.Files, 1)
		req.Equal(msg.ID, *msg.Files[0].MessageID)

		// A file cannot be attached twice
		_, err = env.messages.Send(ctx, service.SendMessageInput{ChatID: &chat.ID, SenderID: alice, FileIDs: []uuid.UUID{file.ID}})
		req.ErrorIs(err, service.ErrValidation)
	})

	t.Run("concurrent sends claim a file once", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice, bob := env.user(t, "alice"), env.user(t, "bob")
		chat := env.chat(t, "pair", alice, bob)
		env.blobs.EXPECT().Put(gomock.Any(), "a.txt", gomock.Any()).DoAndReturn(putOK("blobs/a.txt")).Times(1)
		file, err := env.messages.UploadFile(ctx, alice, chat.ID, "a.txt", strings.NewReader("shared attachment"))
		req.NoError(err)
		env.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Times(1)

		const senders = 5
		var wg sync.WaitGroup
		errs := make(chan error, senders)
		for range senders {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.messages.Send(ctx, service.SendMessageInput{ChatID: &chat.ID, SenderID: alice, FileIDs: []uuid.UUID{file.ID}})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			req.ErrorIs(err, service.ErrFileUnavailable)
		}
		req.Equal(1, ok)

		messages, err := env.messages.ListMessages(ctx, alice, chat.ID)
		req.NoError(err)
		req.Len(messages, 1)
		req.Len(messages[0].Files, 1)
	})

	tests := []struct {
		name    string
		input   func(chatID, alice, eve uuid.UUID) service.SendMessageInput
		wantErr error
	}{
		{
			name: "empty content",
			input: func(chatID, alice, _ uuid.UUID) service.SendMessageInput {
				return service.SendMessageInput{ChatID: &chatID, SenderID: alice, Content: "  "}
			},
			wantErr: service.ErrValidation,
		},
		{
			name: "unknown status",
			input: func(chatID, alice, _ uuid.UUID) service.SendMessageInput {
				return service.SendMessageInput{ChatID: &chatID, SenderID: alice, Content: "x", Status: "lost"}
			},
			wantErr: service.ErrValidation,
		},
		{
			name: "non participant",
			input: func(chatID, _, eve uuid.UUID) service.SendMessageInput {
				return service.SendMessageInput{ChatID: &chatID, SenderID: eve, Content: "x"}
			},
			wantErr: service.ErrForbidden,
		},
		{
			name: "unknown file",
			input: func(chatID, alice, _ uuid.UUID) service.SendMessageInput {
				return service.SendMessageInput{ChatID: &chatID, SenderID: alice, FileIDs: []uuid.UUID{uuid.New()}}
			},
			wantErr: service.ErrNotFound,
		},
		{
			name: "content too long",
			input: func(chatID, alice, _ uuid.UUID) service.SendMessageInput {
				return service.SendMessageInput{ChatID: &chatID, SenderID: alice, Content: strings.Repeat("й", service.MaxContentLength+1)}
			},
			wantErr: service.ErrContentTooLong,
		},
		{
			name: "no target",
			input: func(_, alice, _ uuid.UUID) service.SendMessageInput {
				return service.SendMessageInput{SenderID: alice, Content: "x"}
			},
			wantErr: service.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			alice, bob, eve := env.user(t, "alice"), env.user(t, "bob"), env.user(t, "eve")
			chat := env.chat(t, "pair", alice, bob)

			_, err := env.messages.Send(ctx, tt.input(chat.ID, alice, eve))

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMessageService_SendFile(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	env.blobs.EXPECT().Put(gomock.Any(), "photo.png", gomock.Any()).DoAndReturn(putOK("blobs/photo.png")).Times(1)
	env.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Times(1)

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 32)
	msg, file, err := env.messages.SendFile(ctx, service.SendFileInput{
		RecipientID: &bob,
		SenderID:    alice,
		Filename:    "photo.png",
		Body:        strings.NewReader(png),
	})

	req.NoError(err)
	req.True(msg.IsFile)
	req.Equal("image/png", file.ContentType)
	req.Equal("blobs/photo.png", file.FilePath)
	req.Equal(msg.ID, *file.MessageID)

	stored, err := env.store.Messages().GetByID(ctx, msg.ID)
	req.NoError(err)
	req.Len(stored.Files, 1)
	req.Equal(file.ID, stored.Files[0].ID)
}

func TestMessageService_SendFile_BlobFailure(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	chat := env.chat(t, "pair", alice, bob)
	env.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(blob.Object{}, errors.New("disk full")).Times(1)

	_, _, err := env.messages.SendFile(context.Background(), service.SendFileInput{
		ChatID: &chat.ID, SenderID: alice, Filename: "a.bin", Body: strings.NewReader("abc"),
	})

	req.ErrorContains(err, "disk full")
	msgs, err := env.store.Messages().ListByChat(context.Background(), chat.ID)
	req.NoError(err)
	req.Empty(msgs)
}

func TestMessageService_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent and set union", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice, bob, carol := env.user(t, "alice"), env.user(t, "bob"), env.user(t, "carol")
		chat := env.chat(t, "team", alice, bob, carol)
		msg := env.send(t, chat.ID, alice, nil, "hello")
		env.notifier.EXPECT().NotifyMessageRead(gomock.Any(), gomock.Any()).Times(3)

		_, err := env.messages.MarkRead(ctx, bob, msg.ID)
		req.NoError(err)
		_, err = env.messages.MarkRead(ctx, bob, msg.ID)
		req.NoError(err)
		got, err := env.messages.MarkRead(ctx, carol, msg.ID)
		req.NoError(err)

		req.Equal([]uuid.UUID{bob, carol}, got.ReadBy)
		req.Equal(domain.StatusSent, got.Status)
	})

	t.Run("concurrent readers are all kept", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice := env.user(t, "alice")
		readers := make([]uuid.UUID, 6)
		for i := range readers {
			readers[i] = env.user(t, "reader")
		}
		chat := env.chat(t, "crowd", append([]uuid.UUID{alice}, readers...)...)
		msg := env.send(t, chat.ID, alice, nil, "hello")

		var mu sync.Mutex
		var broadcastSizes []int
		env.notifier.EXPECT().NotifyMessageRead(gomock.Any(), gomock.Any()).
			Do(func(m *domain.Message, reader uuid.UUID) {
				mu.Lock()
				defer mu.Unlock()
				broadcastSizes = append(broadcastSizes, len(m.ReadBy))
			}).Times(len(readers))

		var wg sync.WaitGroup
		errs := make(chan error, len(readers))
		for _, r := range readers {
			wg.Add(1)
			go func(r uuid.UUID) {
				defer wg.Done()
				_, err := env.messages.MarkRead(ctx, r, msg.ID)
				errs <- err
			}(r)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			req.NoError(err)
		}

		stored, err := env.store.Messages().GetByID(ctx, msg.ID)
		req.NoError(err)
		req.ElementsMatch(readers, stored.ReadBy)

		// Each broadcast carries every receipt committed before it
		req.ElementsMatch([]int{1, 2, 3, 4, 5, 6}, broadcastSizes)
	})

	t.Run("outsider cannot mark read", func(t *testing.T) {
		req := require.New(t)
		env := newTestEnv(t)
		alice, bob, eve := env.user(t, "alice"), env.user(t, "bob"), env.user(t, "eve")
		chat := env.chat(t, "pair", alice, bob)
		msg := env.send(t, chat.ID, alice, &bob, "private")

		_, err := env.messages.MarkRead(ctx, eve, msg.ID)

		req.ErrorIs(err, service.ErrNotParticipant)
		stored, err := env.store.Messages().GetByID(ctx, msg.ID)
		req.NoError(err)
		req.Empty(stored.ReadBy)
	})

	t.Run("missing message", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.messages.MarkRead(ctx, uuid.New(), uuid.New())

		require.ErrorIs(t, err, service.ErrMessageNotFound)
	})
}

func TestMessageService_Edit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	chat := env.chat(t, "pair", alice, bob)
	msg := env.send(t, chat.ID, alice, &bob, "draft")

	// When a non-sender edits
	_, err := env.messages.Edit(ctx, bob, msg.ID, "hijack")

	// Then nothing changes
	req.ErrorIs(err, service.ErrForbidden)
	stored, err := env.store.Messages().GetByID(ctx, msg.ID)
	req.NoError(err)
	req.Equal("draft", stored.Content)
	req.Nil(stored.EditedAt)

	// When the sender edits
	env.notifier.EXPECT().NotifyEditedMessage(gomock.Any()).Times(2)
	edited, err := env.messages.Edit(ctx, alice, msg.ID, "final")

	// Then content and edited_at are persisted
	req.NoError(err)
	req.Equal("final", edited.Content)
	stored, err = env.store.Messages().GetByID(ctx, msg.ID)
	req.NoError(err)
	req.Equal("final", stored.Content)
	req.NotNil(stored.EditedAt)

	_, err = env.messages.Edit(ctx, alice, uuid.New(), "x")
	req.ErrorIs(err, service.ErrNotFound)

	_, err = env.messages.Edit(ctx, alice, msg.ID, strings.Repeat("x", service.MaxContentLength+1))
	req.ErrorIs(err, service.ErrContentTooLong)
	_, err = env.messages.Edit(ctx, alice, msg.ID, strings.Repeat("x", service.MaxContentLength))
	req.NoError(err)
}

func TestMessageService_Delete(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	cache := mocks.NewMockPreviewCache(gomock.NewController(t))
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	chat := env.chat(t, "pair", alice, bob)
	msg := env.send(t, chat.ID, alice, &bob, "oops")
	env.messages.SetPreviewCache(cache)

	req.ErrorIs(env.messages.Delete(ctx, bob, msg.ID), service.ErrForbidden)
	still, err := env.store.Messages().GetByID(ctx, msg.ID)
	req.NoError(err)
	req.NotNil(still)

	env.notifier.EXPECT().NotifyDeletedMessage(chat.ID, msg.ID).Times(1)
	cache.EXPECT().Invalidate(gomock.Any(), chat.ID).Times(1)
	req.NoError(env.messages.Delete(ctx, alice, msg.ID))

	gone, err := env.store.Messages().GetByID(ctx, msg.ID)
	req.NoError(err)
	req.Nil(gone)
	req.ErrorIs(env.messages.Delete(ctx, alice, msg.ID), service.ErrMessageNotFound)
}

func TestMessageService_Forward(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sender, recipient, outsider := env.user(t, "sender"), env.user(t, "recipient"), env.user(t, "outsider")
	source := env.chat(t, "source", sender, recipient)
	target := env.chat(t, "target", sender, recipient, outsider)
	elsewhere := env.chat(t, "elsewhere", sender, outsider)
	original := env.send(t, source.ID, sender, &recipient, "forward me")
	own := env.send(t, elsewhere.ID, outsider, nil, "spam")
	env.notifier.EXPECT().NotifyMessageRead(gomock.Any(), gomock.Any()).Times(1)
	_, err := env.messages.MarkRead(ctx, recipient, original.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   uuid.UUID
		msgID   uuid.UUID
		chatID  uuid.UUID
		wantErr error
	}{
		{name: "by sender", actor: sender, msgID: original.ID, chatID: target.ID},
		{name: "by recipient", actor: recipient, msgID: original.ID, chatID: target.ID},
		{name: "by third party", actor: outsider, msgID: original.ID, chatID: target.ID, wantErr: service.ErrForbidden},
		{name: "missing source", actor: sender, msgID: uuid.New(), chatID: target.ID, wantErr: service.ErrMessageNotFound},
		{name: "missing target", actor: sender, msgID: original.ID, chatID: uuid.New(), wantErr: service.ErrChatNotFound},
		{name: "into a chat the actor is not in", actor: recipient, msgID: original.ID, chatID: elsewhere.ID, wantErr: service.ErrNotParticipant},
		{name: "own message into a foreign chat", actor: outsider, msgID: own.ID, chatID: source.ID, wantErr: service.ErrNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			if tt.wantErr == nil {
				env.notifier.EXPECT().NotifyNewMessage(gomock.Any()).Times(1)
			}

			fwd, err := env.messages.Forward(ctx, tt.actor, tt.msgID, tt.chatID)

			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.NotEqual(original.ID, fwd.ID)
			req.Equal(target.ID, fwd.ChatID)
			req.Equal(tt.actor, fwd.SenderID)
			req.Equal("forward me", fwd.Content)
			req.Equal(domain.StatusSent, fwd.Status)
			req.Empty(fwd.ReadBy)
			req.Nil(fwd.RecipientID)
		})
	}
}

func TestMessageService_ListMessages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	alice, bob, eve := env.user(t, "alice"), env.user(t, "bob"), env.user(t, "eve")
	chat := env.chat(t, "pair", alice, bob)
	first := env.send(t, chat.ID, alice, &bob, "1")
	second := env.send(t, chat.ID, bob, &alice, "2")

	msgs, err := env.messages.ListMessages(ctx, bob, chat.ID)
	req.NoError(err)
	req.Equal([]uuid.UUID{first.ID, second.ID}, messageIDs(msgs))

	_, err = env.messages.ListMessages(ctx, eve, chat.ID)
	req.ErrorIs(err, service.ErrNotParticipant)
}
