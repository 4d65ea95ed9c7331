//go:build !rp2040

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eemon-go/instrument"
	"eemon-go/platform"
	"eemon-go/services/config"
)

func newSimCmd() *cobra.Command {
	var (
		seconds int
		every   time.Duration
		counts  int32
	)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the acquisition core against simulated chips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if every <= 0 {
				return fmt.Errorf("--every must be positive, got %v", every)
			}
			if seconds <= 0 {
				return fmt.Errorf("--seconds must be positive, got %d", seconds)
			}
			cfg, err := config.Load(board)
			if err != nil {
				return err
			}
			hw, err := platform.Open(instrument.Params(cfg))
			if err != nil {
				return err
			}
			sim, _, ok := platform.Sim(hw)
			if !ok {
				return fmt.Errorf("platform is not simulated")
			}
			in, err := instrument.New(hw, cfg)
			if err != nil {
				return err
			}
			if err := in.Init(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(seconds)*time.Second)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- in.Run(ctx) }()

			tick := time.NewTicker(every)
			defer tick.Stop()
		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case <-tick.C:
					for i, ch := range cfg.Channels {
						sim.LatchLineEnergy(i, ch.Phase[0], counts*int32(i+1))
					}
				}
			}
			if err := <-done; err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-3s %-7s %12s %10s %8s\n", "ch", "online", "energy", "power", "samples")
			for _, d := range in.Channels() {
				s := d.Snapshot()
				fmt.Fprintf(out, "%-3d %-7v %12.3f %10.3f %8d\n", s.Index, s.Online, s.TotalEnergy, s.AveragePower(), s.Samples)
			}
			st := in.Scanner().Stats()
			fmt.Fprintf(out, "scan passes=%d readouts=%d hits=%d timeouts=%d errors=%d\n",
				st.Passes, st.Readouts, st.Hits, st.Timeouts, st.Errors)
			return nil
		},
	}
	cmd.Flags().IntVarP(&seconds, "seconds", "s", 3, "Run time")
	cmd.Flags().DurationVar(&every, "every", 200*time.Millisecond, "Line-cycle period per chip")
	cmd.Flags().Int32Var(&counts, "counts", 100, "Energy counts latched per cycle on channel 0 (scaled by index+1)")
	return cmd
}
