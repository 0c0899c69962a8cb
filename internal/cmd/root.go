package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kakaocal/internal/config"
	appLog "kakaocal/internal/log"
	"kakaocal/internal/pipeline"
)

// Version is set at build time via -ldflags "-X kakaocal/internal/cmd.Version=...".
var Version = "dev"

var (
	configPath string
	verbose    bool

	outputPath  string
	statePath   string
	csvPath     string
	durationStr string
	cutoffStr   string
	timezone    string
	dryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "kakaocal [flags] <chat-files...>",
	Short: "Convert KakaoTalk chat exports into an all-day calendar",
	Long: `kakaocal reads KakaoTalk text exports and writes an .ics file with one
all-day event per sender and diary day. Messages written before the cutoff
hour count toward the previous day. Messages converted by an earlier run are
skipped using a dedup state file, so rerunning over the same exports only
emits what is new.`,
	Args:          cobra.ArbitraryArgs,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	appLog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA zone transcript times are read in (default: local)")
	rootCmd.PersistentFlags().StringVar(&durationStr, "duration", "", "Value recorded in X-KAKAO-DURATION-MINUTES (default 30)")
	rootCmd.PersistentFlags().StringVar(&cutoffStr, "cutoff", "", "Diary day boundary hour 0-23 (default 4: 00:00-03:59 -> previous day)")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output ICS path (default "+config.DefaultOutput+")")
	rootCmd.Flags().StringVar(&statePath, "state", "", "Deduplication store (default "+config.DefaultState+")")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "Also write a CSV summary of new events to this path")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print ICS to stdout instead of writing to disk")
}

func initLogging() {
	if verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
}

// loadConfig reads the config file and applies flag overrides. Malformed
// numeric flags keep the configured value.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = outputPath
	}
	if flags.Changed("state") {
		cfg.State = statePath
	}
	if flags.Changed("timezone") {
		cfg.Timezone = timezone
	}
	if flags.Changed("duration") {
		cfg.DurationMinutes = config.ParseDuration(durationStr, cfg.DurationMinutes)
	}
	if flags.Changed("cutoff") {
		cfg.CutoffHour = config.ParseCutoff(cutoffStr, cfg.CutoffHour)
	}
	cfg.Normalize()

	appLog.Debug("effective config",
		"output", cfg.Output,
		"state", cfg.State,
		"duration_minutes", cfg.DurationMinutes,
		"cutoff_hour", cfg.CutoffHour,
		"timezone", cfg.Timezone,
	)
	return cfg, nil
}

func options(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		CutoffHour:      cfg.CutoffHour,
		DurationMinutes: cfg.DurationMinutes,
		Location:        cfg.Location(),
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	batch := pipeline.Batch{
		Inputs:     args,
		OutputPath: cfg.Output,
		StatePath:  cfg.State,
		CSVPath:    csvPath,
		DryRun:     dryRun,
		Stdout:     cmd.OutOrStdout(),
		Options:    options(cfg),
	}

	res, err := batch.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrNoInputs) {
			fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		}
		return err
	}

	switch {
	case res.Empty():
		fmt.Fprintln(cmd.OutOrStdout(), "No new events found.")
	case res.OutputWritten:
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d new events to %s\n", len(res.Groups), cfg.Output)
	}
	return nil
}
