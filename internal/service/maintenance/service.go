package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config contains sweeper configuration
type Config struct {
	// SweepInterval is how often Run sweeps
	SweepInterval time.Duration

	// TempFileMaxAge is the maximum age of temp files before removal
	TempFileMaxAge time.Duration
}

// DefaultConfig returns default sweeper configuration
func DefaultConfig() *Config {
	return &Config{
		SweepInterval:  time.Hour,
		TempFileMaxAge: 24 * time.Hour,
	}
}

// TempCleaner is the part of port.FileSystem the sweeper needs
type TempCleaner interface {
	RootDir() string
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}

// Sweeper removes temp files a killed process left in an output directory
type Sweeper struct {
	config *Config
	fs     TempCleaner
	logger *zap.Logger

	mu      sync.Mutex
	running bool
}

// New creates a new Sweeper
func New(cfg *Config, fs TempCleaner, logger *zap.Logger) *Sweeper {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.TempFileMaxAge <= 0 {
		cfg.TempFileMaxAge = def.TempFileMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		config: cfg,
		fs:     fs,
		logger: logger,
	}
}

// Sweep removes stale temp files once and returns how many were removed
func (s *Sweeper) Sweep() (int, error) {
	count, err := s.fs.CleanOldTempFiles(s.config.TempFileMaxAge)
	if err != nil {
		s.logger.Error("failed to sweep temp files",
			zap.String("dir", s.fs.RootDir()),
			zap.Error(err))
		return count, fmt.Errorf("sweep %s: %w", s.fs.RootDir(), err)
	}
	if count > 0 {
		s.logger.Info("removed stale temp files",
			zap.String("dir", s.fs.RootDir()),
			zap.Int("count", count))
	}
	return count, nil
}

// Run sweeps immediately and then every SweepInterval until ctx is done.
// Sweep errors are logged and do not stop the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("sweeper started",
		zap.String("dir", s.fs.RootDir()),
		zap.Duration("interval", s.config.SweepInterval),
		zap.Duration("max_age", s.config.TempFileMaxAge))

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	s.Sweep()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}
