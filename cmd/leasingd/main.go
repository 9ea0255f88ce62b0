// Command leasingd runs the lease payment scheduling and reconciliation
// engine.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leasingd",
	Short: "Lease payment scheduling and reconciliation engine",
	Long: `leasingd materializes payment schedules for vehicle lease agreements,
records payments and reconciles them against the schedule. Configuration is
read from LEASING_* environment variables and an optional YAML file named by
LEASING_CONFIG.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
