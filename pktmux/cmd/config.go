package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/pktmux/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration.",
		Long: "`config` prints, as yaml, the options `run` would use with " +
			"the same flags, config file and environment.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			out, err := cfg.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}

	defaults := config.Default()
	bindFlags(configCmd.Flags(), &defaults)

	return configCmd
}
