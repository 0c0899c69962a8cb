package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kakaocal/internal/ics"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <calendar.ics>",
	Short: "List the events of a generated calendar file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading calendar: %w", err)
	}

	entries, err := ics.Inspect(body)
	if err != nil {
		return fmt.Errorf("parsing calendar: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  %s\n", e.Start.Format("2006-01-02"), e.UID, e.Summary)
	}
	fmt.Fprintf(out, "%d events\n", len(entries))
	return nil
}
