package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/congo-pay/paycard/internal/sweeper"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale card artifacts once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			ttl := cfg.SweepTTL
			if cmd.Flags().Changed("ttl") {
				ttl, _ = cmd.Flags().GetDuration("ttl")
			}

			n := sweeper.New(cfg.OutputDir, 0, ttl, logger).Sweep(time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale artifacts from %s\n", n, cfg.OutputDir)
			return nil
		},
	}

	cmd.Flags().Duration("ttl", 0, "Minimum artifact age to remove (default SWEEP_TTL)")
	return cmd
}
