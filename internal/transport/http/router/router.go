package router

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/handlers"
	"github.com/vedran77/bittalk/internal/transport/http/middleware"
	"github.com/vedran77/bittalk/internal/transport/ws"
)

type Deps struct {
	Users          *service.UserService
	Chats          *service.ChatService
	Messages       *service.MessageService
	Verifier       middleware.TokenVerifier
	Gateway        *ws.Handler
	AllowedOrigins []string
	Log            *slog.Logger
}

func New(d Deps) http.Handler {
	userHandler := handlers.NewUserHandler(d.Users, d.Log)
	chatHandler := handlers.NewChatHandler(d.Chats, d.Messages, d.Log)
	messageHandler := handlers.NewMessageHandler(d.Messages, d.Log)
	fileHandler := handlers.NewFileHandler(d.Messages, d.Log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: !slices.Contains(d.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})

	// Authenticates itself so browsers can pass the token as a query param.
	r.Get("/ws/{chat_id}", d.Gateway.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Verifier))

		r.Get("/me", userHandler.Me)
		r.Get("/users", userHandler.Search)

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatHandler.List)
			r.Post("/", chatHandler.Create)
			r.Get("/{id}", chatHandler.Get)
			r.Get("/{id}/messages", chatHandler.Messages)
			r.Post("/{id}/files", chatHandler.Upload)
		})
		r.Get("/direct-chats/{user1}/{user2}", chatHandler.DirectChat)

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.Send)
			r.Post("/file", messageHandler.SendFile)
			r.Put("/{id}", messageHandler.Edit)
			r.Delete("/{id}", messageHandler.Delete)
			r.Post("/{id}/read", messageHandler.MarkRead)
			r.Post("/{id}/forward", messageHandler.Forward)
		})

		r.Get("/files/{id}", fileHandler.Download)
	})

	return r
}
