package csrf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSweep runs the manager's Sweep on the configured fixed interval until
// ctx is cancelled.
//
// The schedule is driven by a cron runner rather than a fire-and-forget
// timer so the task is started at process init and stopped deterministically
// at shutdown; the call blocks until cancellation and then waits for any
// in-flight sweep to finish.
func StartSweep(ctx context.Context, manager *Manager) error {
	interval := manager.Config().SweepInterval

	runner := cron.New()
	_, err := runner.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		manager.Sweep()
	})
	if err != nil {
		return fmt.Errorf("schedule csrf sweep: %w", err)
	}

	runner.Start()
	slog.Info("csrf sweep started", slog.Duration("interval", interval))

	<-ctx.Done()

	stopCtx := runner.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		slog.Warn("csrf sweep did not stop within grace period")
	}

	slog.Info("csrf sweep stopped")
	return nil
}
