package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeRegistry struct{ live int }

func (f fakeRegistry) CountLive() int        { return f.live }
func (f fakeRegistry) CountCreated() uint64  { return 0 }
func (f fakeRegistry) CountTimedOut() uint64 { return 0 }

func TestHealthzReportsLiveSessions(t *testing.T) {
	r := NewRouter(fakeRegistry{live: 2})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"live_sessions":2`) {
		t.Fatalf("body = %q, want live_sessions:2", w.Body.String())
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	r := NewRouter(fakeRegistry{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
