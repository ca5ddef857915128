package main

import (
	"context"
	"fmt"
	"os"

	"github.com/livefire2015/ez-society/src/config"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// cfg is loaded by main before any command runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "societyd",
	Short: "Maintenance billing and ledger service for residential societies",
	Long: `societyd bills residential society flats for maintenance, records
payments against those bills and keeps an append-only ledger per flat.

Configuration is read from the environment (and a .env file if present):
  STORE_DRIVER     memory or postgres (default memory)
  DATABASE_URL     postgres connection string
  HTTP_ADDR        listen address (default :8080)
  JWT_SECRET       HS256 secret used to verify bearer tokens
  REQUEST_TIMEOUT  per-request deadline (default 5s)
  LOG_LEVEL, LOG_FORMAT, LOG_TIME_FORMAT, LOG_OUTPUT`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore returns the configured store and a func that releases it
func openStore(ctx context.Context) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(db), func() { db.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
