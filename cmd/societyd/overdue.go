package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/logger"
	"github.com/livefire2015/ez-society/src/services"
	"github.com/spf13/cobra"
)

var overdueCmd = &cobra.Command{
	Use:   "process-overdue",
	Short: "Mark past-due bills overdue and charge late fees",
	Long: `Mark every pending or partially paid bill whose due date has passed as
overdue and charge the society's late fee once per bill. Safe to run
repeatedly, e.g. from a daily cron.`,
	Example: `  # All societies
  societyd process-overdue

  # One society
  societyd process-overdue --society 6f1c...`,
	RunE: runOverdue,
}

func init() {
	rootCmd.AddCommand(overdueCmd)

	overdueCmd.Flags().String("society", "", "Only process this society id")
}

func runOverdue(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process-overdue")
	ctx := cmd.Context()

	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	overdue := services.New(st).Overdue

	raw, _ := cmd.Flags().GetString("society")
	if raw != "" {
		societyID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid --society: %w", err)
		}
		result, err := overdue.ProcessSociety(ctx, societyID)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d bills overdue, %d late fees (Rs.%s)\n",
			societyID, result.OverdueBillsProcessed, result.LateFeesCharged, result.LateFeeTotal.StringFixed(2))
		return nil
	}

	results, err := overdue.ProcessAll(ctx)
	if err != nil {
		return err
	}
	total := 0
	for id, result := range results {
		total += result.OverdueBillsProcessed
		fmt.Printf("%s: %d bills overdue, %d late fees (Rs.%s)\n",
			id, result.OverdueBillsProcessed, result.LateFeesCharged, result.LateFeeTotal.StringFixed(2))
	}
	log.Info().
		Int("societies", len(results)).
		Int("overdue_bills", total).
		Msg("Overdue run finished")
	return nil
}
