// Package main implements the curator CLI: run the daily pipeline, record
// picks, learn preferences and manage the item cache.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "curator",
	Short:         "Newsletter article curation pipeline",
	Long:          "curator fetches feeds, scores and classifies articles into newsletter sections, and learns from past picks.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Init(cfg.LogLevel), nil
}
