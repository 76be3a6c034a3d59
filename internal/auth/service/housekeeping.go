package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/store"
	"github.com/aussiebroadwan/haulage/pkg/clockx"
)

const (
	DefaultHousekeepingInterval = time.Hour
	DefaultAttemptRetention     = 24 * time.Hour
)

// Pinger is a dependency whose health can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sweeper drops expired entries from a store that does not expire them itself.
type Sweeper interface {
	Sweep() int
}

// HousekeepingService periodically prunes old login attempts, sweeps an
// in-process revocation backend and pings the revocation store so a dropped
// connection is re-established off the request path.
type HousekeepingService struct {
	Store      store.Store
	Revocation Pinger
	Sweeper    Sweeper // nil unless the revocation backend is in memory
	Logger     *slog.Logger
	Interval   time.Duration
	Clock      clockx.Clock

	// AttemptRetention is how long attempts are kept. It must exceed the
	// lockout window or lockouts would end early.
	AttemptRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, revocation Pinger, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Store:            st,
		Revocation:       revocation,
		Logger:           logger,
		Interval:         interval,
		AttemptRetention: DefaultAttemptRetention,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single cleanup pass. Each step is independent, a
// failure in one does not stop the others.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	s.Logger.Debug("starting housekeeping cleanup")

	retention := s.AttemptRetention
	if retention <= 0 {
		retention = DefaultAttemptRetention
	}
	cutoff := clockx.Default(s.Clock).Now().Add(-retention)
	if n, err := s.Store.LoginAttempts().DeleteBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to prune login attempts", "error", err)
	} else if n > 0 {
		s.Logger.Debug("pruned login attempts", "deleted", n)
	}

	if s.Sweeper != nil {
		if n := s.Sweeper.Sweep(); n > 0 {
			s.Logger.Debug("swept expired revocation entries", "deleted", n)
		}
	}

	if s.Revocation != nil {
		if err := s.Revocation.Ping(ctx); err != nil {
			s.Logger.Error("revocation store unreachable", "error", err)
		}
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
