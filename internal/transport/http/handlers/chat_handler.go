package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/middleware"
	"github.com/vedran77/bittalk/pkg/validator"
)

type CreateChatRequest struct {
	Name           string      `json:"name" validate:"required,max=100"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type ChatHandler struct {
	chatService    *service.ChatService
	messageService *service.MessageService
	log            *slog.Logger
}

func NewChatHandler(chatService *service.ChatService, messageService *service.MessageService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, messageService: messageService, log: log}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	chats, err := h.chatService.ListChatsForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list chats", err)
		return
	}

	writeJSON(w, http.StatusOK, chats)
}

// Create makes a group chat. The caller always joins as the first participant.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input CreateChatRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	participants := append([]uuid.UUID{userID}, input.ParticipantIDs...)
	chat, err := h.chatService.CreateChat(r.Context(), input.Name, participants)
	if err != nil {
		writeServiceError(w, h.log, "create chat", err)
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id", "chat")
	if !ok {
		return
	}

	detail, err := h.chatService.GetChat(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, h.log, "get chat", err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id", "chat")
	if !ok {
		return
	}

	messages, err := h.messageService.ListMessages(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, h.log, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// Upload stores a file in the chat without sending a message. The returned
// id can be attached to a later message.
func (h *ChatHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id", "chat")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A multipart file field is required")
		return
	}
	defer part.Close()

	file, err := h.messageService.UploadFile(r.Context(), userID, chatID, header.Filename, part)
	if err != nil {
		writeServiceError(w, h.log, "upload file", err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// DirectChat returns the direct chat between two users, creating it on
// first use. The caller must be one of them.
func (h *ChatHandler) DirectChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	first, ok := pathUUID(w, r, "user1", "user")
	if !ok {
		return
	}
	second, ok := pathUUID(w, r, "user2", "user")
	if !ok {
		return
	}
	if userID != first && userID != second {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You can only open your own direct chats")
		return
	}

	chat, err := h.chatService.GetOrCreateDirectChat(r.Context(), first, second)
	if err != nil {
		writeServiceError(w, h.log, "direct chat", err)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}
