package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh pass and print its record",
	Long: `Collect fresh factor data when a collector is configured, recompute every
category, variant and HS code, and append a refresh record. Exits non-zero
when any part of the pass failed.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := loadApp(ctx, appOptions{events: true})
	if err != nil {
		return err
	}
	defer a.Close()

	rec, runErr := a.refresher.RunOnce(ctx, "cli")
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}
	return runErr
}
