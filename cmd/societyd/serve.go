package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/livefire2015/ez-society/src/api"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/services"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. With the postgres store the schema is applied on
startup unless --skip-migrate is given. The memory store keeps nothing
across restarts and is meant for local use.`,
	Example: `  # Local run on the memory store
  JWT_SECRET=dev societyd serve

  # Postgres
  STORE_DRIVER=postgres DATABASE_URL=postgres://localhost/society?sslmode=disable societyd serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("skip-migrate", false, "Do not apply the schema on startup")
	serveCmd.Flags().Duration("shutdown-timeout", 15*time.Second, "How long to wait for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	if err := cfg.RequireServer(); err != nil {
		return err
	}
	skipMigrate, _ := cmd.Flags().GetBool("skip-migrate")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if pg, ok := st.(*store.PostgresStore); ok && !skipMigrate {
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		log.Info().Msg("Schema applied")
	}

	server := api.New(services.New(st), cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("store", cfg.StoreDriver).
			Msg("HTTP API listening")
		errCh <- server.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
