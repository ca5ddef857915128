package main

import (
	"fmt"

	"github.com/livefire2015/ez-society/src/config"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("migrate")

		if cfg.StoreDriver != config.DriverPostgres {
			return fmt.Errorf("migrate needs STORE_DRIVER=%s", config.DriverPostgres)
		}
		db, err := store.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.NewPostgresStore(db).Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info().Msg("Schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
