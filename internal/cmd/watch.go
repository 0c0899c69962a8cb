package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	appLog "kakaocal/internal/log"
	"kakaocal/internal/pipeline"
	"kakaocal/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Convert the configured exports on a cron schedule",
	Long: `watch runs the conversion over watch.inputs from the config file right
away and then on every tick of watch.schedule, until interrupted. The dedup
state file keeps each run limited to messages not converted before.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Watch.Inputs) == 0 {
		return pipeline.ErrNoInputs
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	batch := pipeline.Batch{
		Inputs:     cfg.Watch.Inputs,
		OutputPath: cfg.Output,
		StatePath:  cfg.State,
		Options:    options(cfg),
	}

	return watch.Run(ctx, cfg.Watch.Schedule, func(ctx context.Context) {
		res, err := batch.Run(ctx)
		switch {
		case errors.Is(err, pipeline.ErrNoMatches):
			appLog.Info("watch: no chat files matched", "inputs", cfg.Watch.Inputs)
		case err != nil:
			appLog.Error("watch: batch failed", err)
		case res.Empty():
			appLog.Info("watch: no new events")
		default:
			appLog.Info("watch: wrote events", "events", len(res.Groups), "output", cfg.Output)
		}
	})
}
