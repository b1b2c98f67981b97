package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mcpanel/craftd/internal/event"
	"github.com/mcpanel/craftd/internal/history"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	sink, err := New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = sink.Close() })
	if err := sink.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return sink
}

func TestNew_EmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("empty path accepted")
	}
}

func TestSend_AndCountByType(t *testing.T) {
	sink := newTestSink(t)
	ctx := t.Context()

	tag := func(e event.Event, id string) event.Event {
		e.ServerID = id
		return e
	}

	events := []event.Event{
		tag(event.Started(), "alpha"),
		tag(event.PlayerJoined("Alice"), "alpha"),
		tag(event.PlayerJoined("Bob"), "alpha"),
		tag(event.Crashed(137), "alpha"),
		tag(event.Started(), "bravo"),
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Send %s: %v", e.Type, err)
		}
	}

	counts, err := sink.CountByType(ctx, "alpha", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts[string(event.TypePlayerJoined)] != 2 {
		t.Fatalf("joins = %d", counts[string(event.TypePlayerJoined)])
	}
	if counts[string(event.TypeCrashed)] != 1 || counts[string(event.TypeStarted)] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	// bravo's events must not bleed into alpha's summary
	if total := counts[string(event.TypeStarted)]; total != 1 {
		t.Fatalf("started count = %d", total)
	}
}

func TestCountByType_SinceCutoff(t *testing.T) {
	sink := newTestSink(t)
	ctx := t.Context()

	old := event.Crashed(1)
	old.ServerID = "alpha"
	old.OccurredAt = time.Now().Add(-48 * time.Hour)
	if err := sink.Send(ctx, old); err != nil {
		t.Fatalf("Send: %v", err)
	}

	counts, err := sink.CountByType(ctx, "alpha", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("stale events counted: %v", counts)
	}
}

var _ history.Sink = (*Sink)(nil)
