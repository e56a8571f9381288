package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/domain"
	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/middleware"
	"github.com/vedran77/bittalk/pkg/validator"
)

type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type ForwardMessageRequest struct {
	ChatID uuid.UUID `json:"chat_id" validate:"required"`
}

type SendFileResponse struct {
	Message *domain.Message `json:"message"`
	File    *domain.File    `json:"file"`
}

type MessageHandler struct {
	messageService *service.MessageService
	log            *slog.Logger
}

func NewMessageHandler(messageService *service.MessageService, log *slog.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input service.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}
	input.SenderID = middleware.GetUserID(r.Context())

	msg, err := h.messageService.Send(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.log, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// SendFile takes a multipart form with a "file" part and optional
// chat_id, recipient_id and content fields.
func (h *MessageHandler) SendFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A multipart file field is required")
		return
	}
	defer part.Close()

	errs := make(validator.ValidationErrors)
	chatID, err := optionalUUID(r.FormValue("chat_id"))
	if err != nil {
		errs.Add("chat_id", "chat_id is not a valid id")
	}
	recipientID, err := optionalUUID(r.FormValue("recipient_id"))
	if err != nil {
		errs.Add("recipient_id", "recipient_id is not a valid id")
	}
	if chatID == nil && recipientID == nil && !errs.HasErrors() {
		errs.Add("chat_id", "chat_id is required when recipient_id is missing")
	}
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, file, err := h.messageService.SendFile(r.Context(), service.SendFileInput{
		ChatID:      chatID,
		RecipientID: recipientID,
		SenderID:    middleware.GetUserID(r.Context()),
		Content:     r.FormValue("content"),
		Filename:    header.Filename,
		Body:        part,
	})
	if err != nil {
		writeServiceError(w, h.log, "send file", err)
		return
	}

	writeJSON(w, http.StatusCreated, SendFileResponse{Message: msg, File: file})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := pathUUID(w, r, "id", "message")
	if !ok {
		return
	}

	msg, err := h.messageService.MarkRead(r.Context(), userID, messageID)
	if err != nil {
		writeServiceError(w, h.log, "mark read", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := pathUUID(w, r, "id", "message")
	if !ok {
		return
	}

	var input EditMessageRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Edit(r.Context(), userID, messageID, input.Content)
	if err != nil {
		writeServiceError(w, h.log, "edit message", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := pathUUID(w, r, "id", "message")
	if !ok {
		return
	}

	if err := h.messageService.Delete(r.Context(), userID, messageID); err != nil {
		writeServiceError(w, h.log, "delete message", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) Forward(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := pathUUID(w, r, "id", "message")
	if !ok {
		return
	}

	var input ForwardMessageRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Forward(r.Context(), userID, messageID, input.ChatID)
	if err != nil {
		writeServiceError(w, h.log, "forward message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
