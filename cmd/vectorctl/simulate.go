package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/dunamismax/vectorstudio/internal/domain"
	"github.com/dunamismax/vectorstudio/internal/progress"
)

func newSimulateCmd(c *cli) *cobra.Command {
	var (
		sizeKB int64
		colors int
		tick   time.Duration
		seed   uint64
		stopAt float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the five-phase progress simulation and print the final result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if colors < domain.MinColors || colors > domain.MaxColors {
				return fmt.Errorf("colors must be between %d and %d", domain.MinColors, domain.MaxColors)
			}

			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewPCG(seed, seed))
			}
			sim := progress.New(progress.Config{
				Interval:  tick,
				SizeBytes: sizeKB * 1024,
				Colors:    colors,
				Rand:      rng,
			})

			lastPhase := 0
			outcome, err := sim.Run(cmd.Context(), progress.ObserverFunc(func(_ context.Context, state domain.ProgressState) (string, error) {
				if state.Phase != lastPhase {
					c.logger.Info().Int("phase", state.Phase).Str("name", state.PhaseName).Msg(state.CurrentOperation)
					lastPhase = state.Phase
				}
				c.logger.Debug().
					Float64("percentage", state.Percentage).
					Str("elapsed", domain.FormatDuration(state.ElapsedMS)).
					Msg("tick")
				if stopAt > 0 && state.Percentage >= stopAt {
					return domain.ControlStop, nil
				}
				return domain.ControlNone, nil
			}))
			if err != nil {
				return err
			}

			return c.printJSON(map[string]any{
				"stopped":  outcome.Stopped,
				"progress": outcome.State,
				"metrics":  outcome.Metrics,
			})
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&sizeKB, "size-kb", 300, "source image size in KB")
	flags.IntVar(&colors, "colors", 16, "color count")
	flags.DurationVar(&tick, "tick", progress.DefaultInterval, "tick interval")
	flags.Uint64Var(&seed, "seed", 0, "random seed; 0 picks a random one")
	flags.Float64Var(&stopAt, "stop-at", 0, "stop once the percentage reaches this value")
	return cmd
}
