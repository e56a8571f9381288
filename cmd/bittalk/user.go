package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vedran77/bittalk/internal/auth"
	"github.com/vedran77/bittalk/internal/config"
	"github.com/vedran77/bittalk/internal/service"
	"github.com/vedran77/bittalk/pkg/validator"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

// userCreateCmd provisions a user and prints a bearer token for it, for
// local development without an identity provider.
func userCreateCmd() *cobra.Command {
	var (
		input service.CreateUserInput
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if errs := validator.Struct(input); errs.HasErrors() {
				for field, msg := range errs {
					cmd.PrintErrf("%s: %s\n", field, msg)
				}
				return fmt.Errorf("invalid user")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			store, closeStore, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			user, err := service.NewUserService(store, log).CreateUser(cmd.Context(), input)
			if err != nil {
				return err
			}
			token, err := auth.NewVerifier(cfg.JWTSecret).Issue(user.ID, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "id:    %s\ntoken: %s\n", user.ID, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&input.Email, "email", "", "Email address")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
