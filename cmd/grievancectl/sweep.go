package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one SLA escalation sweep and print the outcome",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer container.Close()
		defer container.Logger.Sync() //nolint:errcheck

		if !container.Postgres.Enabled() {
			container.Logger.Warn("sweeping the in-memory store; nothing will be found")
		}

		report := container.Escalation.Sweep(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d escalated=%d skipped=%d failed=%d\n",
			report.Scanned, report.Escalated, report.Skipped, report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d issues failed to escalate", report.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
