// Package scheduler runs periodic background jobs for the PDF service.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apppdf "github.com/erp/pdfkit/internal/application/printing"
)

// Cleaner removes saved artifacts older than a given age
type Cleaner interface {
	Cleanup(ctx context.Context, age time.Duration) (*apppdf.CleanupResponse, error)
}

// RetentionConfig holds configuration for the retention sweeper
type RetentionConfig struct {
	// MaxAge is how long a saved artifact is kept
	MaxAge time.Duration
	// Interval is how often the sweep runs
	Interval time.Duration
}

// RetentionSweeper deletes expired artifacts on a fixed interval
type RetentionSweeper struct {
	config  RetentionConfig
	cleaner Cleaner
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
	lastStats apppdf.CleanupResponse
}

// NewRetentionSweeper creates a new retention sweeper
func NewRetentionSweeper(config RetentionConfig, cleaner Cleaner, logger *zap.Logger) (*RetentionSweeper, error) {
	if config.MaxAge <= 0 || config.Interval <= 0 {
		return nil, fmt.Errorf("%w: max age and interval must be positive", ErrInvalidConfig)
	}
	if cleaner == nil {
		return nil, fmt.Errorf("%w: cleaner is nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionSweeper{
		config:  config,
		cleaner: cleaner,
		logger:  logger,
	}, nil
}

// Start starts the sweep loop. Calling Start on a running sweeper is a no-op.
func (s *RetentionSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Retention sweeper started",
		zap.Duration("max_age", s.config.MaxAge),
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop stops the sweep loop and waits for a running sweep to finish
func (s *RetentionSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Retention sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the sweep loop is active
func (s *RetentionSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// LastRun returns the time and result of the most recent successful sweep
func (s *RetentionSweeper) LastRun() (time.Time, apppdf.CleanupResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastStats
}

func (s *RetentionSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Failures are logged and retried on the next tick.
func (s *RetentionSweeper) Sweep(ctx context.Context) {
	resp, err := s.cleaner.Cleanup(ctx, s.config.MaxAge)
	if err != nil {
		s.logger.Error("Retention sweep failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastStats = *resp
	s.mu.Unlock()

	if resp.Deleted > 0 || resp.Forgotten > 0 {
		s.logger.Info("Retention sweep removed artifacts",
			zap.Int("deleted", resp.Deleted),
			zap.Int("forgotten", resp.Forgotten),
		)
	}
}
