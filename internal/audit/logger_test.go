package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type insertCall struct {
	userID *int
	role   *string
	action string
	meta   map[string]any
}

type fakeWriter struct {
	calls []insertCall
	err   error
}

func (f *fakeWriter) Insert(_ context.Context, userID *int, role *string, action string, meta []byte) error {
	var m map[string]any
	_ = json.Unmarshal(meta, &m)
	f.calls = append(f.calls, insertCall{userID, role, action, m})
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecord_WithActor(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w, quietLogger())
	l.Record(context.Background(), &auth.Principal{ID: 3, Username: "admin", Role: auth.RoleAdmin},
		ViewDocument, Metadata{"document_id": 9})

	if len(w.calls) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(w.calls))
	}
	c := w.calls[0]
	if c.userID == nil || *c.userID != 3 || c.role == nil || *c.role != "admin" {
		t.Errorf("actor not recorded: %+v", c)
	}
	if c.action != "VIEW_DOCUMENT" || c.meta["document_id"] != float64(9) {
		t.Errorf("unexpected entry: %+v", c)
	}
}

func TestRecord_Anonymous(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w, quietLogger())
	l.Record(context.Background(), nil, LoginFailed, Metadata{"username": "ghost", "reason": "unknown_user"})

	if len(w.calls) != 1 || w.calls[0].userID != nil || w.calls[0].role != nil {
		t.Fatalf("anonymous entry should carry NULL user and role: %+v", w.calls)
	}
}

func TestRecord_ScrubsSecrets(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w, quietLogger())
	l.Record(context.Background(), nil, LoginFailed, Metadata{
		"username":      "alice",
		"Password":      "hunter2",
		"token":         "abc",
		"Authorization": "Bearer abc",
		"password_hash": "x",
	})
	meta := w.calls[0].meta
	if len(meta) != 1 || meta["username"] != "alice" {
		t.Errorf("secrets not scrubbed: %v", meta)
	}
}

func TestRecord_WriteFailureIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("db down")}
	l := NewLogger(w, quietLogger())
	before := testutil.ToFloat64(metrics.AuditWriteFailures.WithLabelValues("LOGOUT"))

	l.Record(context.Background(), nil, Logout, nil)

	if got := testutil.ToFloat64(metrics.AuditWriteFailures.WithLabelValues("LOGOUT")); got != before+1 {
		t.Errorf("failure counter: got %v, want %v", got, before+1)
	}
}

func TestRecord_CanceledContextStillWrites(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Record(ctx, nil, Logout, nil)
	if len(w.calls) != 1 {
		t.Errorf("expected write after cancel, got %d", len(w.calls))
	}
}

func TestRecord_UnknownActionRejected(t *testing.T) {
	w := &fakeWriter{}
	l := NewLogger(w, quietLogger())
	l.Record(context.Background(), nil, Action("DROP_TABLES"), nil)
	if len(w.calls) != 0 {
		t.Errorf("unknown action was written: %+v", w.calls)
	}
}
