package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/ndt-dochub/internal/metrics"
	"github.com/robfig/cron/v3"
)

// IdleSessionDeleter removes sessions last seen before a cutoff. repo.SessionRepo implements it.
type IdleSessionDeleter interface {
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}

// sweepTimeout bounds one sweep run.
const sweepTimeout = time.Minute

// RunSessionSweep starts a cron job that deletes sessions idle longer than maxIdle
// on the given cron spec. The caller stops the returned cron at shutdown.
func RunSessionSweep(sessions IdleSessionDeleter, spec string, maxIdle time.Duration) (*cron.Cron, error) {
	if maxIdle <= 0 {
		return nil, fmt.Errorf("session sweep needs a positive max idle, got %v", maxIdle)
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { sweep(sessions, maxIdle, time.Now) }); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", spec, err)
	}
	c.Start()
	slog.Info("session sweep scheduled", "cron", spec, "max_idle", maxIdle.String())
	return c, nil
}

func sweep(sessions IdleSessionDeleter, maxIdle time.Duration, now func() time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := sessions.DeleteIdle(ctx, now().Add(-maxIdle))
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	metrics.AddSessionsSwept(n)
	if n > 0 {
		slog.Info("session sweep", "deleted", n)
	}
}
