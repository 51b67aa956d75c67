// Package activity tracks session liveness from client heartbeats.
package activity

import (
	"context"
	"time"

	"github.com/crucial707/ndt-dochub/internal/metrics"
)

// Toucher advances a session's last-seen time. repo.SessionRepo implements it.
type Toucher interface {
	Touch(ctx context.Context, token, path string) error
}

type Tracker struct {
	sessions Toucher
}

func NewTracker(sessions Toucher) *Tracker {
	return &Tracker{sessions: sessions}
}

// Heartbeat records that the session behind token is still active on path.
func (t *Tracker) Heartbeat(ctx context.Context, token, path string) error {
	if err := t.sessions.Touch(ctx, token, path); err != nil {
		return err
	}
	metrics.IncHeartbeat()
	return nil
}

// Duration returns whole seconds between createdAt and lastSeenAt, never negative.
func Duration(createdAt, lastSeenAt time.Time) int64 {
	d := lastSeenAt.Sub(createdAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
