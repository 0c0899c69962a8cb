package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kakaocal/internal/dedup"
	"kakaocal/internal/fsutil"
	"kakaocal/internal/ics"
	appLog "kakaocal/internal/log"
)

var (
	// ErrNoInputs is returned when no input paths were given.
	ErrNoInputs = errors.New("no input files provided")

	// ErrNoMatches is returned when none of the given paths resolved to a
	// regular file. It wraps ErrNoInputs.
	ErrNoMatches = fmt.Errorf("%w: no chat files matched the provided paths", ErrNoInputs)

	// ErrNoReadable is returned when every resolved file failed to read. It
	// wraps ErrNoInputs.
	ErrNoReadable = fmt.Errorf("%w: none of the matched chat files could be read", ErrNoInputs)
)

// Batch is one file-based run: read inputs, filter against the persisted
// store, write the calendar and save the store.
type Batch struct {
	Inputs     []string
	OutputPath string
	StatePath  string

	// CSVPath, when set, also receives a CSV summary of the new events.
	CSVPath string

	// DryRun prints the calendar to Stdout and persists nothing.
	DryRun bool
	Stdout io.Writer

	Options Options
}

// BatchResult reports what a Batch run did.
type BatchResult struct {
	Result

	Files         []string
	OutputWritten bool
	StateSaved    bool
}

// Run executes the batch. Unreadable inputs are logged and skipped, but a run
// left with no readable input fails with ErrNoReadable and persists nothing.
func (b Batch) Run(ctx context.Context) (BatchResult, error) {
	var out BatchResult

	if len(b.Inputs) == 0 {
		return out, ErrNoInputs
	}

	out.Files = ResolveInputs(b.Inputs)
	if len(out.Files) == 0 {
		return out, ErrNoMatches
	}

	store := dedup.Load(b.StatePath)

	sources := make([]Source, 0, len(out.Files))
	for _, path := range out.Files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			appLog.Error("reading chat file failed, skipping", err, "path", path)
			continue
		}
		sources = append(sources, Source{Origin: path, Content: string(data)})
	}
	if len(sources) == 0 {
		return out, ErrNoReadable
	}

	out.Result = Process(sources, store, b.Options)

	appLog.Info("batch processed",
		"files", len(sources),
		"parsed", out.Parsed,
		"fresh", len(out.Fresh),
		"events", len(out.Groups),
		"dry_run", b.DryRun,
	)

	if out.Empty() {
		// Saving keeps reruns over the same inputs stable.
		if err := store.Save(b.StatePath); err != nil {
			return out, err
		}
		out.StateSaved = true
		return out, nil
	}

	if b.DryRun {
		w := b.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := io.WriteString(w, out.Calendar); err != nil {
			return out, fmt.Errorf("write calendar: %w", err)
		}
		return out, nil
	}

	if err := fsutil.WriteFile(b.OutputPath, []byte(out.Calendar), 0o644); err != nil {
		return out, fmt.Errorf("write calendar: %w", err)
	}
	out.OutputWritten = true

	if b.CSVPath != "" {
		csv := ics.ToCSV(ics.SummaryRows(out.Groups)) + "\r\n"
		if err := fsutil.WriteFile(b.CSVPath, []byte(csv), 0o644); err != nil {
			return out, fmt.Errorf("write csv: %w", err)
		}
	}

	if err := store.Save(b.StatePath); err != nil {
		return out, err
	}
	out.StateSaved = true

	return out, nil
}

// ResolveInputs expands glob patterns and returns absolute paths of regular
// files, in argument order. Missing paths are skipped.
func ResolveInputs(inputs []string) []string {
	var files []string
	for _, in := range inputs {
		candidates := []string{in}
		if strings.ContainsAny(in, "*?[") {
			matches, err := filepath.Glob(in)
			if err != nil {
				appLog.Debug("invalid glob pattern, skipping", "pattern", in, "err", err)
				continue
			}
			candidates = matches
		}

		for _, c := range candidates {
			abs, err := filepath.Abs(c)
			if err != nil {
				continue
			}
			info, err := os.Stat(abs)
			if err != nil || !info.Mode().IsRegular() {
				appLog.Debug("input path skipped", "path", abs)
				continue
			}
			files = append(files, abs)
		}
	}
	return files
}
