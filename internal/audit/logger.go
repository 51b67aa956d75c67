package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/metrics"
)

// Metadata is the free-form detail stored with an entry.
type Metadata map[string]any

// Writer persists one audit entry. repo.AuditRepo implements it.
type Writer interface {
	Insert(ctx context.Context, userID *int, role *string, actionType string, metadata []byte) error
}

// sensitiveKeys are dropped from metadata before writing.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"authorization": {},
}

// Logger writes audit entries. Failures are logged and counted, never returned.
type Logger struct {
	w   Writer
	log *slog.Logger
}

func NewLogger(w Writer, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{w: w, log: log}
}

// Record appends an entry for action performed by actor. A nil actor is
// stored with NULL user and role.
func (l *Logger) Record(ctx context.Context, actor *auth.Principal, action Action, meta Metadata) {
	if !action.Valid() {
		l.log.Error("audit action not in vocabulary", "action", string(action))
		metrics.IncAuditWriteFailure("unknown")
		return
	}

	body, err := json.Marshal(scrub(meta))
	if err != nil {
		l.log.Error("audit metadata encode failed", "action", string(action), "error", err)
		body = []byte("{}")
	}

	var userID *int
	var role *string
	if actor != nil {
		id, r := actor.ID, actor.Role
		userID, role = &id, &r
	}

	// The request context may already be canceled once the response is
	// written; the entry should still land.
	ctx = context.WithoutCancel(ctx)
	if err := l.w.Insert(ctx, userID, role, string(action), body); err != nil {
		l.log.Error("audit write failed", "action", string(action), "error", err)
		metrics.IncAuditWriteFailure(string(action))
	}
}

func scrub(meta Metadata) Metadata {
	out := make(Metadata, len(meta))
	for k, v := range meta {
		if _, drop := sensitiveKeys[strings.ToLower(k)]; drop {
			continue
		}
		out[k] = v
	}
	return out
}
