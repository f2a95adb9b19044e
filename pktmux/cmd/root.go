// Package cmd provides the command-line interface for pktmux.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// newRootCmd builds the base command with all its subcommands.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "pktmux",
		Short: "pktmux simulates a packet multiplexer that serves its " +
			"ingress queues round-robin.",
		Long: `pktmux simulates a packet multiplexer. Every tick, packets ` +
			`arrive at random ingress ports, and every ingress queue sends ` +
			`at most one packet to its egress port. The latency of every ` +
			`packet is logged.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "",
		"yaml file with the options of the run")
	rootCmd.PersistentFlags().String("env-file", "",
		"file with PKTMUX_* variables (default .env, if present)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
