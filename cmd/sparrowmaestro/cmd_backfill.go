package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Store recent Notehub events",
	Long: `Fetch the project's events within HUB_HISTORICAL_DATA_RECENT_MINUTES from Notehub
and store their readings. Readings already stored are skipped, so the command can be re-run.`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasDatabase() {
		return errors.New("backfill requires DATABASE_URL")
	}

	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Composite.Backfill(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Events:   %d\n", result.Events)
	fmt.Printf("Readings: %d\n", result.Readings)
	fmt.Printf("Skipped:  %d\n", result.Skipped)
	return nil
}
