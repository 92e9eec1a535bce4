package depmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultMonitorSchedule re-probes watched dependencies every minute.
const DefaultMonitorSchedule = "@every 1m"

// Monitor periodically re-probes the health checks of running
// dependencies on a cron schedule. A failed probe is logged and
// recorded, never acted on: the manager does not kill a process for
// failing its health check.
type Monitor struct {
	mgr      *Manager
	schedule string
	logger   *slog.Logger

	mu        sync.Mutex
	watched   map[string]Dependency
	unhealthy map[string]int // consecutive failed probes

	cron    *cron.Cron
	entryID cron.EntryID
}

// NewMonitor creates a Monitor over mgr. schedule is a cron spec
// (e.g. "@every 30s"); empty uses DefaultMonitorSchedule.
func NewMonitor(mgr *Manager, schedule string, logger *slog.Logger) *Monitor {
	if schedule == "" {
		schedule = DefaultMonitorSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		mgr:       mgr,
		schedule:  schedule,
		logger:    logger,
		watched:   make(map[string]Dependency),
		unhealthy: make(map[string]int),
	}
}

// Watch adds dep to the sweep set. Dependencies with HealthNone are
// accepted but never probed.
func (m *Monitor) Watch(dep Dependency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched[dep.Name] = dep
}

// Unwatch removes name from the sweep set.
func (m *Monitor) Unwatch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watched, name)
	delete(m.unhealthy, name)
}

// Unhealthy returns the names of watched dependencies whose last
// probe failed, with their consecutive-failure counts.
func (m *Monitor) Unhealthy() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.unhealthy))
	for name, n := range m.unhealthy {
		out[name] = n
	}
	return out
}

// Sweep probes every watched, running dependency once. Exposed for
// tests and for an eager probe right after startup.
func (m *Monitor) Sweep(ctx context.Context) {
	m.mu.Lock()
	deps := make([]Dependency, 0, len(m.watched))
	for _, dep := range m.watched {
		deps = append(deps, dep)
	}
	m.mu.Unlock()

	for _, dep := range deps {
		if dep.HealthCheck.Kind == HealthNone {
			continue
		}
		if !m.mgr.IsRunning(dep.Name) {
			continue
		}
		healthy := probeHealthy(ctx, dep.HealthCheck)

		m.mu.Lock()
		if healthy {
			if m.unhealthy[dep.Name] > 0 {
				m.logger.Info("dependency recovered", "name", dep.Name)
			}
			delete(m.unhealthy, dep.Name)
		} else {
			m.unhealthy[dep.Name]++
			m.logger.Warn("dependency health probe failed",
				"name", dep.Name, "consecutive", m.unhealthy[dep.Name])
		}
		m.mu.Unlock()
	}
}

// Start schedules the sweep and begins the cron runner.
func (m *Monitor) Start(ctx context.Context) error {
	c := cron.New()
	id, err := c.AddFunc(m.schedule, func() { m.Sweep(ctx) })
	if err != nil {
		return fmt.Errorf("depmgr: monitor schedule %q: %w", m.schedule, err)
	}
	m.cron = c
	m.entryID = id
	c.Start()
	m.logger.Info("dependency monitor started", "schedule", m.schedule)
	return nil
}

// Stop halts the cron runner, waiting for an in-flight sweep.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}
