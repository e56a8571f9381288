package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/bittalk/internal/auth"
	"github.com/vedran77/bittalk/internal/blob"
	"github.com/vedran77/bittalk/internal/domain"
	badgerstore "github.com/vedran77/bittalk/internal/repository/badger"
	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/router"
	"github.com/vedran77/bittalk/internal/transport/ws"
)

type api struct {
	t        *testing.T
	store    *badgerstore.Store
	users    *service.UserService
	chats    *service.ChatService
	messages *service.MessageService
	verifier *auth.Verifier
	server   *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db, err := badgerstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	blobs, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	log := slog.New(slog.DiscardHandler)
	store := badgerstore.NewStore(db)
	users := service.NewUserService(store, log)
	chats := service.NewChatService(store, log)
	messages := service.NewMessageService(store, chats, blobs, log)
	registry := ws.NewRegistry(log)
	messages.SetNotifier(ws.NewDispatcher(registry))
	verifier := auth.NewVerifier("test-secret")

	handler := router.New(router.Deps{
		Users:          users,
		Chats:          chats,
		Messages:       messages,
		Verifier:       verifier,
		Gateway:        ws.NewHandler(registry, chats, messages, verifier, ws.SessionConfig{SendBuffer: 16}, []string{"*"}, log),
		AllowedOrigins: []string{"*"},
		Log:            log,
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &api{t: t, store: store, users: users, chats: chats, messages: messages, verifier: verifier, server: server}
}

func (a *api) user(name string) uuid.UUID {
	a.t.Helper()
	u, err := a.users.CreateUser(context.Background(), service.CreateUserInput{Name: name, Email: name + "@example.com"})
	require.NoError(a.t, err)
	return u.ID
}

func (a *api) do(method, path string, as uuid.UUID, contentType string, body io.Reader) *http.Response {
	a.t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(a.t, err)
	if as != uuid.Nil {
		token, err := a.verifier.Issue(as, time.Minute)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *api) json(method, path string, as uuid.UUID, payload any) *http.Response {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(raw)
	}
	return a.do(method, path, as, "application/json", body)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	resp := a.do(http.MethodGet, "/health", uuid.Nil, "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMe(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice := a.user("alice")

	resp := a.do(http.MethodGet, "/api/v1/me", uuid.Nil, "", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Equal("UNAUTHORIZED", decode[errorBody](t, resp).Error.Code)

	resp = a.do(http.MethodGet, "/api/v1/me", alice, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(alice, decode[domain.User](t, resp).ID)

	resp = a.do(http.MethodGet, "/api/v1/me", uuid.New(), "", nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestSearchUsers(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob := a.user("alice"), a.user("bobby")
	a.user("carol")

	resp := a.do(http.MethodGet, "/api/v1/users?query=BOB", alice, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal([]domain.UserSummary{{ID: bob, Name: "bobby"}}, decode[[]domain.UserSummary](t, resp))

	resp = a.do(http.MethodGet, "/api/v1/users?query=alice", alice, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Empty(decode[[]domain.UserSummary](t, resp))

	resp = a.do(http.MethodGet, "/api/v1/users?query=bob", uuid.Nil, "", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestChats(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob, carol := a.user("alice"), a.user("bob"), a.user("carol")

	// Given a group chat created by alice
	resp := a.json(http.MethodPost, "/api/v1/chats", alice, map[string]any{
		"name":            "team",
		"participant_ids": []uuid.UUID{bob, alice},
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	chat := decode[domain.Chat](t, resp)
	req.Equal([]uuid.UUID{alice, bob}, chat.ParticipantIDs)

	// Then participants see it and outsiders are refused
	resp = a.do(http.MethodGet, "/api/v1/chats/"+chat.ID.String(), bob, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = a.do(http.MethodGet, "/api/v1/chats/"+chat.ID.String(), carol, "", nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	req.Equal("FORBIDDEN", decode[errorBody](t, resp).Error.Code)

	resp = a.do(http.MethodGet, "/api/v1/chats/"+uuid.NewString()+"/messages", alice, "", nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)
	req.Equal("Chat not found", decode[errorBody](t, resp).Error.Message)

	resp = a.do(http.MethodGet, "/api/v1/chats/not-a-uuid", alice, "", nil)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("INVALID_ID", decode[errorBody](t, resp).Error.Code)

	resp = a.do(http.MethodGet, "/api/v1/chats", bob, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	summaries := decode[[]domain.ChatSummary](t, resp)
	req.Len(summaries, 1)
	req.Equal(service.NoMessagesPreview, summaries[0].LastMessage)
}

func TestCreateChat_Validation(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice := a.user("alice")

	resp := a.json(http.MethodPost, "/api/v1/chats", alice, map[string]any{"participant_ids": []uuid.UUID{}})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	body := decode[errorBody](t, resp)
	req.Equal("VALIDATION_ERROR", body.Error.Code)
	req.Contains(body.Error.Fields, "name")

	resp = a.do(http.MethodPost, "/api/v1/chats", alice, "application/json", strings.NewReader("{"))
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("INVALID_JSON", decode[errorBody](t, resp).Error.Code)
}

func TestDirectChat(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob, carol := a.user("alice"), a.user("bob"), a.user("carol")
	path := "/api/v1/direct-chats/" + alice.String() + "/" + bob.String()

	resp := a.do(http.MethodGet, path, alice, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	first := decode[domain.Chat](t, resp)

	resp = a.do(http.MethodGet, "/api/v1/direct-chats/"+bob.String()+"/"+alice.String(), bob, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(first.ID, decode[domain.Chat](t, resp).ID)

	resp = a.do(http.MethodGet, path, carol, "", nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	resp = a.do(http.MethodGet, "/api/v1/direct-chats/"+alice.String()+"/"+alice.String(), alice, "", nil)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("Cannot start a direct chat with yourself", decode[errorBody](t, resp).Error.Message)
}

func TestMessages(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob, carol := a.user("alice"), a.user("bob"), a.user("carol")

	// Given a message sent to bob by recipient only
	resp := a.json(http.MethodPost, "/api/v1/messages", alice, map[string]any{"recipient_id": bob, "content": "hi"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	msg := decode[domain.Message](t, resp)
	req.Equal(alice, msg.SenderID)
	req.Equal(domain.StatusSent, msg.Status)
	msgPath := "/api/v1/messages/" + msg.ID.String()

	// When bob reads it
	resp = a.json(http.MethodPost, msgPath+"/read", bob, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal([]uuid.UUID{bob}, decode[domain.Message](t, resp).ReadBy)

	// Then only alice may edit or delete it
	resp = a.json(http.MethodPut, msgPath, bob, map[string]string{"content": "nope"})
	req.Equal(http.StatusForbidden, resp.StatusCode)

	resp = a.json(http.MethodPut, msgPath, alice, map[string]string{"content": "hello"})
	req.Equal(http.StatusOK, resp.StatusCode)
	edited := decode[domain.Message](t, resp)
	req.Equal("hello", edited.Content)
	req.NotNil(edited.EditedAt)

	resp = a.json(http.MethodPut, msgPath, alice, map[string]string{"content": ""})
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	// Forwarding needs access to the source message
	target, err := a.chats.CreateChat(context.Background(), "target", []uuid.UUID{carol, alice})
	req.NoError(err)
	resp = a.json(http.MethodPost, msgPath+"/forward", carol, map[string]uuid.UUID{"chat_id": target.ID})
	req.Equal(http.StatusForbidden, resp.StatusCode)
	resp = a.json(http.MethodPost, msgPath+"/forward", alice, map[string]uuid.UUID{"chat_id": target.ID})
	req.Equal(http.StatusCreated, resp.StatusCode)
	req.Equal(target.ID, decode[domain.Message](t, resp).ChatID)

	resp = a.json(http.MethodDelete, msgPath, bob, nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	resp = a.json(http.MethodDelete, msgPath, alice, nil)
	req.Equal(http.StatusNoContent, resp.StatusCode)
	resp = a.json(http.MethodPost, msgPath+"/read", bob, nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestSendMessage_Validation(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice := a.user("alice")

	resp := a.json(http.MethodPost, "/api/v1/messages", alice, map[string]any{"content": "hi"})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Contains(decode[errorBody](t, resp).Error.Fields, "chat_id")

	resp = a.json(http.MethodPost, "/api/v1/messages", alice, map[string]any{"recipient_id": uuid.New(), "content": "hi", "status": "lost"})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Contains(decode[errorBody](t, resp).Error.Fields, "status")
}

func TestFiles(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob, carol := a.user("alice"), a.user("bob"), a.user("carol")
	chat, err := a.chats.CreateChat(context.Background(), "team", []uuid.UUID{alice, bob})
	req.NoError(err)
	content := []byte("%PDF-1.4 minutes of the meeting")

	// Given an upload into the chat
	contentType, body := multipartBody(t, nil, "minutes.pdf", content)
	resp := a.do(http.MethodPost, "/api/v1/chats/"+chat.ID.String()+"/files", alice, contentType, body)
	req.Equal(http.StatusCreated, resp.StatusCode)
	uploaded := decode[domain.File](t, resp)
	req.Equal("application/pdf", uploaded.ContentType)
	req.Nil(uploaded.MessageID)

	// When it is attached to a message
	resp = a.json(http.MethodPost, "/api/v1/messages", alice, map[string]any{"chat_id": chat.ID, "file_ids": []uuid.UUID{uploaded.ID}})
	req.Equal(http.StatusCreated, resp.StatusCode)
	msg := decode[domain.Message](t, resp)
	req.True(msg.IsFile)
	req.Len(msg.Files, 1)

	// Then participants can download it and outsiders cannot
	resp = a.do(http.MethodGet, "/api/v1/files/"+uploaded.ID.String(), bob, "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Equal(content, got)
	req.Contains(resp.Header.Get("Content-Disposition"), "minutes.pdf")

	resp = a.do(http.MethodGet, "/api/v1/files/"+uploaded.ID.String(), carol, "", nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	contentType, body = multipartBody(t, nil, "x.txt", content)
	resp = a.do(http.MethodPost, "/api/v1/chats/"+chat.ID.String()+"/files", carol, contentType, body)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestSendFile(t *testing.T) {
	req := require.New(t)
	a := newAPI(t)
	alice, bob := a.user("alice"), a.user("bob")

	contentType, body := multipartBody(t, map[string]string{"recipient_id": bob.String(), "content": "notes"}, "notes.txt", []byte("plain text notes"))
	resp := a.do(http.MethodPost, "/api/v1/messages/file", alice, contentType, body)
	req.Equal(http.StatusCreated, resp.StatusCode)
	out := decode[struct {
		Message domain.Message `json:"message"`
		File    domain.File    `json:"file"`
	}](t, resp)
	req.True(out.Message.IsFile)
	req.Equal("notes", out.Message.Content)
	req.Equal(out.Message.ID, *out.File.MessageID)
	req.True(strings.HasPrefix(out.File.ContentType, "text/plain"))

	contentType, body = multipartBody(t, nil, "notes.txt", []byte("x"))
	resp = a.do(http.MethodPost, "/api/v1/messages/file", alice, contentType, body)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Contains(decode[errorBody](t, resp).Error.Fields, "chat_id")

	contentType, body = multipartBody(t, map[string]string{"chat_id": uuid.NewString()}, "notes.txt", []byte("x"))
	resp = a.do(http.MethodPost, "/api/v1/messages/file", alice, contentType, body)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}
