package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "venuehire",
		Short:         "Hourly venue rental: quotes, bookings and host listings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "venuehire %s (%s)\n", Version, CommitSHA)
		},
	})
	return root
}
