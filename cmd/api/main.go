package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"ura-backend/config"
	_ "ura-backend/docs" // Important for Swagger
	"ura-backend/pkg/logger"

	"github.com/spf13/cobra"
)

var cfg *config.Config

// @title           URA Backend API
// @version         1.0
// @description     Beta registrations, referrals, onboarding and account settings for the URA site.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// rootCmd runs the server when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:           "ura-api",
	Short:         "URA backend service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		logger.Init(cfg.Env)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Log.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
