package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"synnergy-aaa/core"
)

func newTestController() *StateController {
	reg := core.New(core.Config{
		MaxSessions:    8,
		Timeout:        time.Minute,
		StateAttribute: "State",
	})
	return NewStateController(reg)
}

func TestStatsReportsZeroInitially(t *testing.T) {
	c := newTestController()
	w := httptest.NewRecorder()
	c.Stats(w, httptest.NewRequest(http.MethodGet, "/api/state/stats", nil))

	var resp statsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Live != 0 || resp.Created != 0 {
		t.Fatalf("expected zeroed stats, got %+v", resp)
	}
}

func TestDemoFreezeThawDiscardRoundTrip(t *testing.T) {
	c := newTestController()

	w := httptest.NewRecorder()
	c.DemoFreeze(w, httptest.NewRequest(http.MethodPost, "/api/state/demo/freeze", nil))
	var freeze freezeResponse
	if err := json.NewDecoder(w.Body).Decode(&freeze); err != nil {
		t.Fatalf("decode freeze: %v", err)
	}
	if freeze.Result != "ok" {
		t.Fatalf("freeze result = %q, want ok", freeze.Result)
	}

	thawReq := httptest.NewRequest(http.MethodPost, "/api/state/demo/thaw?request_id="+strconv.FormatUint(freeze.RequestID, 10), nil)
	w = httptest.NewRecorder()
	c.DemoThaw(w, thawReq)
	var thaw thawResponse
	if err := json.NewDecoder(w.Body).Decode(&thaw); err != nil {
		t.Fatalf("decode thaw: %v", err)
	}
	if thaw.Result != "restored" {
		t.Fatalf("thaw result = %q, want restored", thaw.Result)
	}

	discardReq := httptest.NewRequest(http.MethodPost, "/api/state/demo/discard?request_id="+strconv.FormatUint(freeze.RequestID, 10), nil)
	w = httptest.NewRecorder()
	c.DemoDiscard(w, discardReq)
	if w.Code != http.StatusOK {
		t.Fatalf("discard status = %d, want 200", w.Code)
	}

	// The token was consumed; thawing again with the same id is unknown.
	w = httptest.NewRecorder()
	c.DemoThaw(w, thawReq)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second thaw status = %d, want 404", w.Code)
	}
}

func TestDemoThawUnknownRequestID(t *testing.T) {
	c := newTestController()
	w := httptest.NewRecorder()
	c.DemoThaw(w, httptest.NewRequest(http.MethodPost, "/api/state/demo/thaw?request_id=9999", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestLookupReportsSnapshotForLiveEntry(t *testing.T) {
	c := newTestController()

	w := httptest.NewRecorder()
	c.DemoFreeze(w, httptest.NewRequest(http.MethodPost, "/api/state/demo/freeze", nil))
	var freeze freezeResponse
	if err := json.NewDecoder(w.Body).Decode(&freeze); err != nil {
		t.Fatalf("decode freeze: %v", err)
	}

	// The registry's own entry-id counter starts at 0 and is independent
	// of the demo request id the freeze endpoint returns.
	req := httptest.NewRequest(http.MethodGet, "/api/state/0", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "0"})
	w = httptest.NewRecorder()
	c.Lookup(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	var got lookupResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode lookup: %v", err)
	}
	if got.ID != 0 || got.Tries != 1 {
		t.Fatalf("lookup = %+v, want id=0 tries=1", got)
	}
}

func TestLookupUnknownID(t *testing.T) {
	c := newTestController()
	req := httptest.NewRequest(http.MethodGet, "/api/state/999", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "999"})
	w := httptest.NewRecorder()
	c.Lookup(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
