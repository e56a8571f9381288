package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vedran77/bittalk/internal/auth"
	"github.com/vedran77/bittalk/internal/blob"
	"github.com/vedran77/bittalk/internal/cache"
	"github.com/vedran77/bittalk/internal/config"
	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/internal/transport/http/router"
	"github.com/vedran77/bittalk/internal/transport/ws"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return err
	}

	users := service.NewUserService(store, log)
	chats := service.NewChatService(store, log)
	messages := service.NewMessageService(store, chats, blobs, log)

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		previews := cache.NewRedisPreviewCache(client, log)
		chats.SetPreviewCache(previews)
		messages.SetPreviewCache(previews)
		log.Info("chat preview cache enabled")
	}

	registry := ws.NewRegistry(log)
	messages.SetNotifier(ws.NewDispatcher(registry))

	verifier := auth.NewVerifier(cfg.JWTSecret)
	gateway := ws.NewHandler(registry, chats, messages, verifier, ws.SessionConfig{
		SendBuffer: cfg.WSSendBuffer,
		RateLimit:  cfg.WSRateLimit,
		RateBurst:  cfg.WSRateBurst,
	}, cfg.Origins(), log)

	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: router.New(router.Deps{
			Users:          users,
			Chats:          chats,
			Messages:       messages,
			Verifier:       verifier,
			Gateway:        gateway,
			AllowedOrigins: cfg.Origins(),
			Log:            log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked websocket connections outlive Shutdown; the base
		// context ends their sessions.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", srv.Addr, "store", cfg.StoreDriver, "blobs", cfg.BlobDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped cleanly")
	return nil
}

func newBlobStore(cfg *config.Config) (blob.Store, error) {
	if cfg.BlobDriver == "cloudinary" {
		return blob.NewCloudinaryStore(cfg.CloudinaryURL)
	}
	return blob.NewDiskStore(cfg.UploadDir)
}
