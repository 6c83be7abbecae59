package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/pkg/events"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// SyncerConfig controls how frequently pending queues are drained.
type SyncerConfig struct {
	Interval     time.Duration
	DrainTimeout time.Duration
}

// Syncer drains every active engine's pending queue on a schedule and the
// moment connectivity is restored. Sign-out events retire idle engines.
type Syncer struct {
	registry *Registry
	monitor  ConnectionHealth
	bus      *events.Bus
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      SyncerConfig

	unsubscribe func()
}

func NewSyncer(registry *Registry, monitor ConnectionHealth, bus *events.Bus, logger *zap.Logger, cfg SyncerConfig) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	} else if cfg.Interval < time.Second {
		// the @every spec has second granularity; "@every 0s" is rejected
		cfg.Interval = time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = cfg.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Syncer{
		registry: registry,
		monitor:  monitor,
		bus:      bus,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	if _, err := s.cron.AddFunc(schedule, func() {
		s.drainAll("schedule")
	}); err != nil {
		logger.Error("drain schedule rejected", zap.String("schedule", schedule), zap.Error(err))
	}

	return s
}

// Start launches the cron scheduler and the event listener.
func (s *Syncer) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	if s.bus != nil {
		ch, cancel := s.bus.Subscribe()
		s.unsubscribe = cancel
		go s.listen(ch)
	}
	s.logger.Info("syncer started", zap.Duration("interval", s.cfg.Interval))
}

// Stop gracefully stops the scheduler and the event listener.
func (s *Syncer) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("syncer stopped")
}

func (s *Syncer) listen(ch <-chan events.Event) {
	for event := range ch {
		switch event.Type {
		case events.Online:
			s.logger.Info("connectivity restored, replaying pending changes")
			s.drainAll("reconnect")
		case events.SignedOut:
			s.registry.Remove(event.UserID)
		}
	}
}

func (s *Syncer) drainAll(trigger string) {
	if s.monitor != nil && !s.monitor.IsOnline() {
		s.logger.Debug("skipping drain (offline)", zap.String("trigger", trigger))
		return
	}

	for _, engine := range s.registry.All() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
		if err := engine.Drain(ctx); err != nil {
			s.logger.Warn("drain incomplete",
				zap.String("user_id", engine.UserID()),
				zap.String("trigger", trigger),
				zap.Error(err))
		}
		cancel()
	}
}
