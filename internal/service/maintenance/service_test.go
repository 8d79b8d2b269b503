package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tapestry/safefetch/internal/adapter/filesystem"
)

// mockCleaner implements TempCleaner for testing
type mockCleaner struct {
	mu      sync.Mutex
	count   int
	err     error
	called  int
	lastAge time.Duration
}

func (m *mockCleaner) RootDir() string { return "/out" }

func (m *mockCleaner) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	m.lastAge = olderThan
	return m.count, m.err
}

func (m *mockCleaner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.called
}

func TestNew_Defaults(t *testing.T) {
	s := New(nil, &mockCleaner{}, zap.NewNop())
	if s.config.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want %v", s.config.SweepInterval, time.Hour)
	}
	if s.config.TempFileMaxAge != 24*time.Hour {
		t.Errorf("TempFileMaxAge = %v, want %v", s.config.TempFileMaxAge, 24*time.Hour)
	}

	s = New(&Config{TempFileMaxAge: 6 * time.Hour}, &mockCleaner{}, nil)
	if s.config.SweepInterval != time.Hour || s.config.TempFileMaxAge != 6*time.Hour {
		t.Errorf("config = %+v", s.config)
	}
}

func TestSweeper_Sweep(t *testing.T) {
	tests := []struct {
		name      string
		cleaner   *mockCleaner
		wantCount int
		wantErr   bool
	}{
		{name: "nothing to do", cleaner: &mockCleaner{}},
		{name: "removes files", cleaner: &mockCleaner{count: 3}, wantCount: 3},
		{name: "error", cleaner: &mockCleaner{err: errors.New("boom")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&Config{TempFileMaxAge: 2 * time.Hour}, tt.cleaner, zap.NewNop())
			n, err := s.Sweep()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sweep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantCount {
				t.Errorf("Sweep() = %d, want %d", n, tt.wantCount)
			}
			if tt.cleaner.lastAge != 2*time.Hour {
				t.Errorf("max age passed = %v", tt.cleaner.lastAge)
			}
		})
	}
}

func TestSweeper_SweepRealDir(t *testing.T) {
	m, err := filesystem.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(m.RootDir(), ".download_123.tmp")
	if err := os.WriteFile(stale, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	n, err := New(nil, m, zap.NewNop()).Sweep()
	if err != nil || n != 1 {
		t.Fatalf("Sweep() = %d, %v; want 1, nil", n, err)
	}
	if m.Exists(stale) {
		t.Error("stale temp file still present")
	}
}

func TestSweeper_Run(t *testing.T) {
	cleaner := &mockCleaner{count: 1}
	s := New(&Config{SweepInterval: 10 * time.Millisecond}, cleaner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := cleaner.calls(); got < 2 {
		t.Errorf("CleanOldTempFiles called %d times, want at least 2", got)
	}
}

func TestSweeper_DoubleRun(t *testing.T) {
	s := New(nil, &mockCleaner{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		s.Run(ctx)
	}()
	<-started

	deadline := time.Now().Add(time.Second)
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Run(ctx); err == nil {
		t.Error("second Run() should fail while the first is active")
	}
}
