package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"synnergy-aaa/core"
	"synnergy-aaa/httpadmin/controllers"
)

func TestRegisterMountsStatsRoute(t *testing.T) {
	reg := core.New(core.Config{MaxSessions: 4, Timeout: time.Minute, StateAttribute: "State"})
	r := mux.NewRouter()
	Register(r, controllers.NewStateController(reg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/state/stats = %d, want 200", w.Code)
	}
}

func TestRegisterMountsLookupRouteByID(t *testing.T) {
	reg := core.New(core.Config{MaxSessions: 4, Timeout: time.Minute, StateAttribute: "State"})
	r := mux.NewRouter()
	Register(r, controllers.NewStateController(reg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state/42", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /api/state/42 = %d, want 404 (no such entry, but route must still match)", w.Code)
	}
}

func TestRegisterRejectsWrongMethod(t *testing.T) {
	reg := core.New(core.Config{MaxSessions: 4, Timeout: time.Minute, StateAttribute: "State"})
	r := mux.NewRouter()
	Register(r, controllers.NewStateController(reg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/state/stats", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /api/state/stats = %d, want 405", w.Code)
	}
}
