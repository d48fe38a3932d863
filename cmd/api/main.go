package main

import (
	"fmt"
	"os"

	"logmene/internal/config"
	"logmene/pkg/logger"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "logmene",
	Short: "LogMene freight brokerage API",
	Long:  "Connects shippers with transportation companies: freight requests, quotes, delivery proofs and notifications.",
	// Running the binary without a subcommand starts the server.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing app.env")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadConfig reads configuration and rebuilds the logger with the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogEnv); err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}
	return cfg, nil
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
