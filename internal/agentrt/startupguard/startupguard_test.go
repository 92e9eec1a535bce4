package startupguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckFalseBelowThreshold(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "crash_guard.json"), 3, time.Hour)
	now := time.Now()
	for i := 0; i < 2; i++ {
		if err := g.RecordCrash(now); err != nil {
			t.Fatalf("RecordCrash: %v", err)
		}
	}
	if g.Check(now) {
		t.Fatal("expected guard not tripped below threshold")
	}
}

func TestCheckTrueAtThresholdWithinWindow(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "crash_guard.json"), 3, time.Hour)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := g.RecordCrash(now); err != nil {
			t.Fatalf("RecordCrash: %v", err)
		}
	}
	if !g.Check(now) {
		t.Fatal("expected guard tripped at threshold")
	}
}

func TestCheckFalseOutsideWindow(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "crash_guard.json"), 3, time.Hour)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := g.RecordCrash(now); err != nil {
			t.Fatalf("RecordCrash: %v", err)
		}
	}
	later := now.Add(2 * time.Hour)
	if g.Check(later) {
		t.Fatal("expected guard not tripped outside window")
	}
}

func TestRecordCleanStartResetsConsecutive(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "crash_guard.json"), 2, time.Hour)
	now := time.Now()
	g.RecordCrash(now)
	g.RecordCrash(now)
	if !g.Check(now) {
		t.Fatal("expected tripped before clean start")
	}
	if err := g.RecordCleanStart(); err != nil {
		t.Fatalf("RecordCleanStart: %v", err)
	}
	if g.Check(now) {
		t.Fatal("expected guard reset after clean start regardless of prior state")
	}
	if g.Snapshot().Total != 2 {
		t.Fatalf("expected Total to survive clean start, got %d", g.Snapshot().Total)
	}
}

func TestThresholdZeroAlwaysDisabled(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "crash_guard.json"), 0, time.Hour)
	now := time.Now()
	for i := 0; i < 10; i++ {
		g.RecordCrash(now)
	}
	if g.Check(now) {
		t.Fatal("expected threshold 0 to always return false")
	}
}

func TestMalformedStateFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crash_guard.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	g := New(path, 1, time.Hour)
	if g.Snapshot().Consecutive != 0 || g.Snapshot().Total != 0 {
		t.Fatal("expected malformed file to fall back to zero-valued defaults")
	}
}
