// Package monitor watches connectivity to the remote store and publishes
// online/offline transitions so the sync layer can drain its pending queues
// the moment the connection comes back.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/internal/infrastructure/cache"
	"github.com/brainbow/syncd/pkg/events"
)

type Monitor struct {
	remote   *pgxpool.Pool
	sessions *redislib.Client
	cache    *cache.Store
	bus      *events.Bus

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(remote *pgxpool.Pool, sessions *redislib.Client, store *cache.Store, bus *events.Bus, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		remote:   remote,
		sessions: sessions,
		cache:    store,
		bus:      bus,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
}

// IsOnline reports whether the remote store is reachable. This is the
// signal the sync engines consult before attempting propagation.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Remote
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	status := Status{
		Remote:    m.checkRemote(),
		Sessions:  m.checkSessions(),
		Cache:     m.checkCache(),
		LastCheck: time.Now(),
	}

	m.mu.Lock()
	wasOnline := m.status.Remote
	hadCheck := !m.status.LastCheck.IsZero()
	m.status = status
	m.mu.Unlock()

	if m.bus == nil {
		return
	}
	switch {
	case status.Remote && (!wasOnline || !hadCheck):
		m.logger.Info("remote store reachable")
		m.bus.Publish(events.Event{Type: events.Online})
	case !status.Remote && (wasOnline || !hadCheck):
		m.logger.Warn("remote store unreachable, mutations will queue locally")
		m.bus.Publish(events.Event{Type: events.Offline})
	}
}

func (m *Monitor) checkRemote() bool {
	if m.remote == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.remote.Ping(ctx) == nil
}

func (m *Monitor) checkSessions() bool {
	if m.sessions == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.sessions.Ping(ctx).Err() == nil
}

func (m *Monitor) checkCache() bool {
	if m.cache == nil {
		return false
	}
	if err := m.cache.Ping(); err != nil {
		m.logger.Warn("local cache check failed", zap.Error(err))
		return false
	}
	return true
}
