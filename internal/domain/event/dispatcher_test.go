package event

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHandler struct {
	names  []string
	events []string
}

func (h *recordingHandler) Handle(e DomainEvent) error {
	h.events = append(h.events, e.EventName())
	return nil
}

func (h *recordingHandler) HandledEvents() []string { return h.names }

func TestInMemoryDispatcher_Routing(t *testing.T) {
	d := NewInMemoryDispatcher()
	failures := &recordingHandler{names: []string{NameDownloadFailed}}
	all := &recordingHandler{names: []string{"*"}}
	d.Subscribe(failures)
	d.Subscribe(all)

	d.Dispatch(NewURLRejected("r1", "http://localhost/", "internal_network", "nope"))
	d.Dispatch(NewDownloadFailed("r2", "a.pdf", "timeout", "timed out", true))

	if len(failures.events) != 1 || failures.events[0] != NameDownloadFailed {
		t.Errorf("named handler got %v", failures.events)
	}
	if len(all.events) != 2 {
		t.Errorf("wildcard handler got %v, want 2 events", all.events)
	}
}

func TestNullDispatcher(t *testing.T) {
	var d EventDispatcher = NullDispatcher{}
	h := &recordingHandler{names: []string{"*"}}
	d.Subscribe(h)
	d.Dispatch(NewDownloadCompleted("r", "/tmp/x", 1, "", time.Second))
	if len(h.events) != 0 {
		t.Errorf("NullDispatcher delivered %v", h.events)
	}
}

func TestMetricsHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	m := NewMetricsHandler()
	d.Subscribe(m)

	d.Dispatch(NewURLRejected("r1", "ftp://x", "scheme_not_allowed", ""))
	d.Dispatch(NewDownloadCompleted("r2", "/out/a", 100, "abc", time.Second))
	d.Dispatch(NewDownloadCompleted("r3", "/out/b", 50, "def", time.Second))
	d.Dispatch(NewDownloadFailed("r4", "c", "network_failure", "reset", true))
	d.Dispatch(NewContentMismatched("r5", "/out/d", "pdf", "html"))

	got := m.GetMetrics()
	want := map[string]int64{
		"urls_rejected":      1,
		"downloads_complete": 2,
		"downloads_failed":   1,
		"content_mismatched": 1,
		"bytes_downloaded":   150,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d", k, got[k], v)
		}
	}
}

func TestLoggingHandler(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewLoggingHandler(zap.New(core))

	events := []DomainEvent{
		NewURLRejected("r1", "http://10.0.0.1/", "internal_network", "Internal/localhost URLs not allowed"),
		NewDownloadCompleted("r2", "/out/a.pdf", 10, "abc", time.Millisecond),
		NewDownloadFailed("r3", "b.pdf", "http_status", "HTTP error 404", false),
		NewContentMismatched("r4", "/out/c.pdf", "pdf", "html"),
	}
	for _, e := range events {
		if err := h.Handle(e); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	wantMessages := []string{"url rejected", "download completed", "download failed", "content mismatch, file removed"}
	entries := logs.AllUntimed()
	if len(entries) != len(wantMessages) {
		t.Fatalf("got %d log entries, want %d", len(entries), len(wantMessages))
	}
	for i, msg := range wantMessages {
		if entries[i].Message != msg {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Message, msg)
		}
		if entries[i].ContextMap()["request_id"] == "" {
			t.Errorf("entry %d missing request_id", i)
		}
	}
}
