// Package watch reruns a job on a cron schedule until its context ends.
package watch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "kakaocal/internal/log"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context)

// Validate reports whether schedule is a usable cron expression.
func Validate(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Run executes job once immediately and then on every tick of schedule.
// Overlapping ticks are skipped. Run blocks until ctx is canceled and the
// running job, if any, has returned.
func Run(ctx context.Context, schedule string, job Job) error {
	if err := Validate(schedule); err != nil {
		return err
	}

	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := c.AddFunc(schedule, func() { job(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	appLog.Info("watch started", "schedule", schedule)
	job(ctx)

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	appLog.Info("watch stopped")
	return nil
}

// cronLogger adapts cron's logger interface to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
