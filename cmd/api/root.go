package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"call-receptionist/internal/config"
	"call-receptionist/internal/database"
	"call-receptionist/pkg/logger"
)

// app is the state shared by subcommands once the root pre-run has loaded
// configuration. Nothing here is a package-level global.
type app struct {
	envFile string

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "receptionist",
		Short: "AI phone receptionist for small businesses",
		Long:  "Answers inbound calls through Twilio webhooks, runs the receptionist dialog, and serves the operator API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.envFile != "" {
				if err := os.Setenv("ENV_FILE", a.envFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.App.Env)
			slog.SetDefault(a.log)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load before reading the environment (default .env)")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newTenantsCmd(a))
	cmd.AddCommand(newTokenCmd(a))

	return cmd
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	return database.Open(ctx, a.cfg.PostgresDSN(), database.PoolConfig{})
}
