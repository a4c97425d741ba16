package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"alertstreams/internal/feed"
)

// captureHandler is a slog.Handler that records emitted log records so
// tests can assert on logging behavior.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(_ string) slog.Handler      { return h }

func (h *captureHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func (h *captureHandler) attrValue(i int, key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= len(h.records) {
		return "", false
	}
	var value string
	var found bool
	h.records[i].Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			value = a.Value.String()
			found = true
			return false
		}
		return true
	})
	return value, found
}

// captureLogs swaps the default logger for the test's duration.
func captureLogs(t *testing.T) *captureHandler {
	t.Helper()
	capture := &captureHandler{}
	old := slog.Default()
	slog.SetDefault(slog.New(capture))
	t.Cleanup(func() { slog.SetDefault(old) })
	return capture
}

// countingRecorder records dispatch outcomes for assertions.
type countingRecorder struct {
	received      int
	unrouted      int
	handlerErrors int
}

func (r *countingRecorder) MessageReceived(topic string) { r.received++ }
func (r *countingRecorder) Unrouted(topic string)        { r.unrouted++ }
func (r *countingRecorder) HandlerError(topic string)    { r.handlerErrors++ }

func message(topic string, payload string) *feed.Message {
	return &feed.Message{
		Payload:  []byte(payload),
		Metadata: feed.Metadata{Topic: topic},
	}
}

func TestDispatch_RoutesToHandler(t *testing.T) {
	var got []string
	d := New("test-stream", map[string]Handler{
		"topic.a": func(payload []byte, md feed.Metadata) error {
			got = append(got, string(payload))
			return nil
		},
	})

	d.Dispatch(message("topic.a", "first"))
	d.Dispatch(message("topic.a", "second"))

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("handler received %v, want [first second] in order", got)
	}
}

func TestDispatch_UnroutedTopicIsLoggedAndDropped(t *testing.T) {
	capture := captureLogs(t)
	recorder := &countingRecorder{}

	d := New("test-stream", map[string]Handler{
		"known": func(payload []byte, md feed.Metadata) error { return nil },
	})
	d.SetRecorder(recorder)

	// Must not panic and must not reach any handler.
	d.Dispatch(message("unknown.topic", "{}"))

	if n := capture.count(slog.LevelWarn); n != 1 {
		t.Fatalf("warn log count = %d, want 1", n)
	}
	topic, ok := capture.attrValue(0, "topic")
	if !ok || topic != "unknown.topic" {
		t.Errorf("warn log topic = %q (found=%v), want unknown.topic", topic, ok)
	}
	if recorder.unrouted != 1 || recorder.received != 1 {
		t.Errorf("recorder = %+v, want received=1 unrouted=1", recorder)
	}
}

func TestDispatch_HandlerErrorDoesNotStopDispatching(t *testing.T) {
	capture := captureLogs(t)
	recorder := &countingRecorder{}

	calls := 0
	d := New("test-stream", map[string]Handler{
		"flaky": func(payload []byte, md feed.Metadata) error {
			calls++
			if calls == 1 {
				return errors.New("malformed alert")
			}
			return nil
		},
	})
	d.SetRecorder(recorder)

	d.Dispatch(message("flaky", "bad"))
	d.Dispatch(message("flaky", "good"))

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if n := capture.count(slog.LevelError); n != 1 {
		t.Errorf("error log count = %d, want 1", n)
	}
	if recorder.handlerErrors != 1 {
		t.Errorf("handlerErrors = %d, want 1", recorder.handlerErrors)
	}
}

func TestDispatch_HandlerPanicIsContained(t *testing.T) {
	capture := captureLogs(t)

	d := New("test-stream", map[string]Handler{
		"explosive": func(payload []byte, md feed.Metadata) error {
			panic("boom")
		},
	})

	// Must not propagate the panic.
	d.Dispatch(message("explosive", "{}"))

	if n := capture.count(slog.LevelError); n != 1 {
		t.Errorf("error log count = %d, want 1", n)
	}
}

func TestWarnUnhandled(t *testing.T) {
	capture := captureLogs(t)

	d := New("test-stream", map[string]Handler{
		"sys.heartbeat": HeartbeatHandler,
	})
	d.WarnUnhandled([]string{"sys.heartbeat", "gcn.circular", "hermes.test"})

	if n := capture.count(slog.LevelWarn); n != 2 {
		t.Errorf("warn log count = %d, want 2 (one per unhandled topic)", n)
	}
}
