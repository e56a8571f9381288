package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vedran77/bittalk/internal/auth"
	"github.com/vedran77/bittalk/internal/service"
	"nhooyr.io/websocket"
)

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type ChatAccess interface {
	CheckParticipant(ctx context.Context, userID, chatID uuid.UUID) error
}

// Handler upgrades /ws/{chat_id} requests into Sessions.
type Handler struct {
	registry *Registry
	chats    ChatAccess
	messages MessageOps
	verifier TokenVerifier
	cfg      SessionConfig
	origins  []string
	log      *slog.Logger
}

func NewHandler(registry *Registry, chats ChatAccess, messages MessageOps, verifier TokenVerifier, cfg SessionConfig, origins []string, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		chats:    chats,
		messages: messages,
		verifier: verifier,
		cfg:      cfg,
		origins:  origins,
		log:      log,
	}
}

// ServeHTTP authenticates, checks chat membership, then serves the session
// until it ends. Auth may come via ?token= since browsers can't set headers
// on the upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := auth.TokenFromRequest(r, true)
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.verifier.Verify(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chat_id"))
	if err != nil {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}

	if err := h.chats.CheckParticipant(r.Context(), userID, chatID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "chat not found", http.StatusNotFound)
		case errors.Is(err, service.ErrForbidden):
			http.Error(w, "not a participant", http.StatusForbidden)
		default:
			h.log.Error("ws participant check failed", "chat_id", chatID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: slices.Contains(h.origins, "*"),
	})
	if err != nil {
		h.log.Warn("ws accept failed", "error", err)
		return
	}

	session := NewSession(conn, chatID, userID, h.registry, h.messages, h.cfg, h.log)
	if err := session.Serve(r.Context()); err != nil {
		h.log.Warn("session ended with error", "chat_id", chatID, "user_id", userID, "error", err)
	}
}
