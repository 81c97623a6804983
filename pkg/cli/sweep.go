package cli

import (
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/image"
	"github.com/autodeployr/engine/pkg/util/console"
)

var sweepWindow time.Duration

func newSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove dangling image layers left behind by builds",
		Args:  cobra.NoArgs,
		RunE:  sweepCommand,
	}
	cmd.Flags().DurationVar(&sweepWindow, "window", 0, "Only remove layers created within this window (default: all dangling layers)")
	return cmd
}

func sweepCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}
	reclaimer := image.NewReclaimer(client, imageOptions(cfg, nil)...)

	if sweepWindow > 0 {
		removed, err := reclaimer.SweepRecentDangling(ctx, sweepWindow)
		if err != nil {
			return err
		}
		console.Infof("Removed %d dangling layer(s) created in the last %s", removed, sweepWindow)
		return nil
	}

	result, err := reclaimer.SweepDangling(ctx)
	if err != nil {
		return err
	}
	console.Infof("Removed %d dangling layer(s), reclaimed %s", result.ImagesRemoved, units.HumanSize(float64(result.SpaceReclaimed)))
	return nil
}
