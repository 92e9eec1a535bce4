package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthzAlwaysOK(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz?probe=true", nil)
	w := httptest.NewRecorder()
	s.handle(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
}

func TestReadyzReflectsFlag(t *testing.T) {
	s := NewServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	s.handle(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want 503 before SetReady", w.Code)
	}

	s.SetReady(true)
	w2 := httptest.NewRecorder()
	s.handle(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200 after SetReady(true)", w2.Code)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	s.handle(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestStripQueryIgnoresQueryString(t *testing.T) {
	if got := stripQuery("/healthz?probe=true&x=1"); got != "/healthz" {
		t.Fatalf("stripQuery = %q, want /healthz", got)
	}
}

func TestCountersSnapshotReflectsIncrements(t *testing.T) {
	s := NewServer(nil)
	s.Counters.Requests.Add(3)
	s.Counters.Errors.Add(1)
	snap := s.Counters.snapshot()
	if snap.Requests != 3 || snap.Errors != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
