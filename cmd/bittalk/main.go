package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vedran77/bittalk/internal/config"
	"github.com/vedran77/bittalk/internal/database"
	"github.com/vedran77/bittalk/internal/repository"
	badgerstore "github.com/vedran77/bittalk/internal/repository/badger"
	postgresrepo "github.com/vedran77/bittalk/internal/repository/postgres"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "bittalk",
		Short:         "Real-time chat backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd(), migrateCmd(), userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != "postgres" {
				return errors.New("migrate only applies to STORE_DRIVER=postgres")
			}
			log := newLogger(cfg)

			pool, err := database.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return database.Migrate(cmd.Context(), pool, log)
		},
	}
}

// openStore opens the configured entity store. Postgres is migrated on
// open so a fresh database is usable right away.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case "badger":
		db, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger: %w", err)
		}
		log.Info("using badger store", "path", cfg.BadgerPath)
		return badgerstore.NewStore(db), func() {
			log.Info("closing badger")
			_ = db.Close()
		}, nil
	default:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("connected to database")
		return postgresrepo.NewStore(pool), pool.Close, nil
	}
}
