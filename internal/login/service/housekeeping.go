package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ironveil/warden/internal/login/store"
)

// HousekeepingService periodically drops expired login attempts, email
// codes, and session records so none of them accumulate without bound.
type HousekeepingService struct {
	Store        store.Store
	Orchestrator *Orchestrator
	Logger       *slog.Logger
	Interval     time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService builds the worker. An interval of 0 or less
// defaults to one hour.
func NewHousekeepingService(st store.Store, orch *Orchestrator, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &HousekeepingService{
		Store:        st,
		Orchestrator: orch,
		Logger:       logger,
		Interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs each cleanup independently; one failing never stops the rest.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	purged := s.Orchestrator.PurgeExpired(time.Now())
	if purged > 0 {
		s.Logger.Debug("purged expired login attempts", "count", purged)
	}

	if err := s.Store.EmailCodes().DeleteExpiredEmailCodes(ctx); err != nil {
		s.Logger.Error("failed to delete expired email codes", "error", err)
	}

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}
}
