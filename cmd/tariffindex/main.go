package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tariffindex",
	Short: "Composite cost and export price indices across countries",
	Long: `tariffindex computes reference-anchored composite indices (manufacturing
cost, export price to the US market) for a fixed set of countries and
regions, serves them over HTTP and refreshes them on a schedule.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
