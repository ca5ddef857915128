package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/api"
	"github.com/spf13/cobra"
)

// Identity is owned by an upstream auth service; this only signs local test tokens.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		raw, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		userID := uuid.New()
		if raw != "" {
			var err error
			if userID, err = uuid.Parse(raw); err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
		}

		token, err := api.SignToken(cfg.JWTSecret, userID, ttl)
		if err != nil {
			return err
		}
		fmt.Printf("user_id: %s\n%s\n", userID, token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("user", "", "User id to embed (default: a new random id)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
