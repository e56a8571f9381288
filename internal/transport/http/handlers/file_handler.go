package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/middleware"
)

type FileHandler struct {
	messageService *service.MessageService
	log            *slog.Logger
}

func NewFileHandler(messageService *service.MessageService, log *slog.Logger) *FileHandler {
	return &FileHandler{messageService: messageService, log: log}
}

// Download serves a stored file to a chat participant. Files kept by a
// remote blob store are served by redirect.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fileID, ok := pathUUID(w, r, "id", "file")
	if !ok {
		return
	}

	file, err := h.messageService.GetFile(r.Context(), userID, fileID)
	if err != nil {
		writeServiceError(w, h.log, "download file", err)
		return
	}

	if strings.HasPrefix(file.FilePath, "https://") || strings.HasPrefix(file.FilePath, "http://") {
		http.Redirect(w, r, file.FilePath, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	http.ServeFile(w, r, file.FilePath)
}
