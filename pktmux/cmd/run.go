package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pktmux/config"
	"github.com/sarchlab/pktmux/simulation"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation.",
		Long: "`run` generates packets and serves them until the tick " +
			"count is reached or the process is interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSimulation(ctx, cmd, cfg)
		},
	}

	defaults := config.Default()
	bindFlags(runCmd.Flags(), &defaults)

	return runCmd
}

func runSimulation(
	ctx context.Context,
	cmd *cobra.Command,
	cfg config.Config,
) error {
	s, err := simulation.MakeBuilder().
		WithConfig(cfg).
		WithLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags)).
		WithStatusWriter(cmd.ErrOrStderr()).
		Build()
	if err != nil {
		return err
	}

	runErr := s.Run(ctx)
	termErr := s.Terminate()

	if runErr != nil {
		return runErr
	}

	return termErr
}
