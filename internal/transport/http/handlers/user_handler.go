package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
	log         *slog.Logger
}

func NewUserHandler(userService *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "get current user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Search lists users whose name contains ?query=, excluding the caller.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	users, err := h.userService.SearchUsers(r.Context(), userID, r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, h.log, "search users", err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}
