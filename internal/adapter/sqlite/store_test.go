package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tapestry/safefetch/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal", "safefetch.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.Record(context.Background(), &domain.JournalEntry{
		RequestID: "r1",
		URL:       "https://example.com/a",
		Status:    domain.JournalStatusCompleted,
		StartedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s.Close()

	entries, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || entries[0].RequestID != "r1" {
		t.Errorf("entries after reopen = %+v, want the one recorded before", entries)
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

	entries := []*domain.JournalEntry{
		{
			RequestID:   "r1",
			URL:         "https://example.com/a.pdf",
			Destination: "a.pdf",
			FinalPath:   "/out/a.pdf",
			Bytes:       42,
			Checksum:    "abc",
			Status:      domain.JournalStatusCompleted,
			StartedAt:   base,
			FinishedAt:  base.Add(time.Second),
		},
		{
			RequestID:  "r2",
			URL:        "http://127.0.0.1/",
			Status:     domain.JournalStatusRejected,
			ErrorKind:  "internal_network",
			Detail:     "Internal/localhost URLs not allowed",
			StartedAt:  base.Add(time.Minute),
			FinishedAt: base.Add(time.Minute),
		},
		{
			RequestID:   "r3",
			URL:         "https://example.com/b.pdf",
			Destination: "b.pdf",
			Status:      domain.JournalStatusFailed,
			ErrorKind:   "http_status",
			Detail:      "HTTP error 404",
			StartedAt:   base.Add(2 * time.Minute),
			FinishedAt:  base.Add(2 * time.Minute),
		},
	}
	for _, e := range entries {
		id, err := s.Record(ctx, e)
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if id == 0 || e.ID != id {
			t.Errorf("Record() id = %d, entry ID = %d", id, e.ID)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].RequestID != "r3" || got[1].RequestID != "r2" {
		t.Errorf("Recent order = %s, %s; want r3, r2", got[0].RequestID, got[1].RequestID)
	}
	if got[1].ErrorKind != "internal_network" || got[1].Destination != "" {
		t.Errorf("entry r2 = %+v", got[1])
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent(0) returned %d entries, want 3", len(all))
	}
	first := all[2]
	if first.Bytes != 42 || first.Checksum != "abc" || first.FinalPath != "/out/a.pdf" {
		t.Errorf("entry r1 = %+v", first)
	}
	if !first.StartedAt.Equal(base) || !first.FinishedAt.Equal(base.Add(time.Second)) {
		t.Errorf("timestamps = %v, %v", first.StartedAt, first.FinishedAt)
	}
}
