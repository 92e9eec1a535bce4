package depmgr

import (
	"context"
	"testing"
	"time"
)

func markRunning(mgr *Manager, name string) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.registry[name] = &Entry{Name: name, Kind: KindBinary, Running: true, UpdatedAt: time.Now()}
}

func TestSweepRecordsFailingProbe(t *testing.T) {
	mgr, _ := newTestManager(t)
	markRunning(mgr, "flaky")

	mon := NewMonitor(mgr, "", nil)
	mon.Watch(Dependency{
		Name:        "flaky",
		Kind:        KindBinary,
		HealthCheck: HealthCheck{Kind: HealthCommand, Target: "false", Timeout: time.Second},
	})

	mon.Sweep(context.Background())
	mon.Sweep(context.Background())
	if n := mon.Unhealthy()["flaky"]; n != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", n)
	}
}

func TestSweepClearsOnRecovery(t *testing.T) {
	mgr, _ := newTestManager(t)
	markRunning(mgr, "svc")

	mon := NewMonitor(mgr, "", nil)
	dep := Dependency{
		Name:        "svc",
		Kind:        KindBinary,
		HealthCheck: HealthCheck{Kind: HealthCommand, Target: "false", Timeout: time.Second},
	}
	mon.Watch(dep)
	mon.Sweep(context.Background())
	if len(mon.Unhealthy()) != 1 {
		t.Fatal("expected svc to be unhealthy")
	}

	dep.HealthCheck.Target = "true"
	mon.Watch(dep)
	mon.Sweep(context.Background())
	if len(mon.Unhealthy()) != 0 {
		t.Fatal("expected svc to recover")
	}
}

func TestSweepSkipsStoppedDependencies(t *testing.T) {
	mgr, _ := newTestManager(t)

	mon := NewMonitor(mgr, "", nil)
	mon.Watch(Dependency{
		Name:        "stopped",
		Kind:        KindBinary,
		HealthCheck: HealthCheck{Kind: HealthCommand, Target: "false", Timeout: time.Second},
	})
	mon.Sweep(context.Background())
	if len(mon.Unhealthy()) != 0 {
		t.Fatal("stopped dependencies must not be probed")
	}
}

func TestMonitorRejectsBadSchedule(t *testing.T) {
	mgr, _ := newTestManager(t)
	mon := NewMonitor(mgr, "not a schedule", nil)
	if err := mon.Start(context.Background()); err == nil {
		mon.Stop()
		t.Fatal("expected invalid cron schedule to error")
	}
}
