package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/kvx"
)

// HousekeepingService periodically evicts expired revocation entries from
// backends that don't expire keys on their own. With Redis it has nothing to
// do and is not started.
type HousekeepingService struct {
	Sweeper  kvx.Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the worker. If interval is 0 or negative it
// defaults to one minute.
func NewHousekeepingService(sweeper kvx.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for an in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one eviction pass.
func (s *HousekeepingService) Sweep(ctx context.Context) int {
	n, err := s.Sweeper.Sweep(ctx)
	if err != nil {
		s.Logger.Error("revocation sweep failed", "error", err)
		return 0
	}

	if n > 0 {
		s.Logger.Debug("revocation sweep completed", "evicted", n)
	}
	return n
}
