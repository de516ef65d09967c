// Package controllers holds the thin HTTP façade around a
// *core.Registry, adapted from walletserver/controllers: one
// controller struct wrapping a service, one method per route.
package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"synnergy-aaa/core"
)

// StateController exposes Registry operations over HTTP for
// interactive use and demos; it is not a RADIUS server, only an admin
// and demo surface around the engine (spec.md's core has no HTTP API
// of its own). Since each HTTP call is its own *core.Request, the
// controller stands in for "the wire" between rounds: it remembers the
// State token a DemoFreeze issued so a later DemoThaw/DemoDiscard call
// can hand the registry a fresh request carrying that token in its
// request pairs, the way a real client would echo it back.
type StateController struct {
	reg *core.Registry

	mu     chan struct{} // 1-buffered, acts as a mutex guarding tokens/next
	tokens map[uint64][]byte
	next   uint64
}

// NewStateController wraps reg.
func NewStateController(reg *core.Registry) *StateController {
	c := &StateController{
		reg:    reg,
		mu:     make(chan struct{}, 1),
		tokens: make(map[uint64][]byte),
	}
	c.mu <- struct{}{}
	return c
}

func (c *StateController) lock()   { <-c.mu }
func (c *StateController) unlock() { c.mu <- struct{}{} }

type statsResponse struct {
	Live     int    `json:"live_sessions"`
	Created  uint64 `json:"created_total"`
	TimedOut uint64 `json:"timed_out_total"`
}

// Stats reports the registry's live/created/timed-out counters.
func (c *StateController) Stats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Live:     c.reg.CountLive(),
		Created:  c.reg.CountCreated(),
		TimedOut: c.reg.CountTimedOut(),
	}
	writeJSON(w, resp)
}

type freezeResponse struct {
	Result    string `json:"result"`
	RequestID uint64 `json:"request_id"`
}

// DemoFreeze allocates a new demo request, attaches a sample session
// attribute, and freezes it, returning the new request's id for a
// follow-up DemoThaw/DemoDiscard call.
func (c *StateController) DemoFreeze(w http.ResponseWriter, r *http.Request) {
	c.lock()
	c.next++
	id := c.next
	c.unlock()

	req := core.NewRequest(id)
	req.SessionStateCtx.Append(core.Pair{Name: "demo-round", Value: "1"})
	result := c.reg.Freeze(req)

	if result == core.FreezeOK {
		for _, p := range req.ReplyPairs.Pairs() {
			if p.Name == "State" {
				if token, ok := p.Value.([]byte); ok {
					c.lock()
					c.tokens[id] = token
					c.unlock()
				}
			}
		}
	}
	writeJSON(w, freezeResponse{Result: result.String(), RequestID: id})
}

type thawResponse struct {
	Result string `json:"result"`
}

// DemoThaw thaws the demo request identified by the "request_id" query
// parameter against the State value it was issued.
func (c *StateController) DemoThaw(w http.ResponseWriter, r *http.Request) {
	id, token, ok := c.lookupToken(r)
	if !ok {
		http.Error(w, "unknown request_id", http.StatusNotFound)
		return
	}
	req := core.NewRequest(id)
	req.RequestPairs.Append(core.Pair{Name: "State", Value: token})
	result := c.reg.Thaw(req)
	writeJSON(w, thawResponse{Result: result.String()})
}

// DemoDiscard discards the demo request's state entry.
func (c *StateController) DemoDiscard(w http.ResponseWriter, r *http.Request) {
	id, token, ok := c.lookupToken(r)
	if !ok {
		http.Error(w, "unknown request_id", http.StatusNotFound)
		return
	}
	req := core.NewRequest(id)
	req.RequestPairs.Append(core.Pair{Name: "State", Value: token})
	c.reg.Discard(req)

	c.lock()
	delete(c.tokens, id)
	c.unlock()
	writeJSON(w, map[string]string{"result": "discarded"})
}

type lookupResponse struct {
	ID       uint64 `json:"id"`
	Tries    uint8  `json:"tries"`
	SeqStart uint64 `json:"seq_start"`
	Deadline string `json:"deadline"`
}

// Lookup reports a diagnostic snapshot of the live entry named by the
// "id" path variable, via the registry's by-id debug index.
func (c *StateController) Lookup(w http.ResponseWriter, r *http.Request) {
	var id uint64
	if _, err := fmt.Sscan(mux.Vars(r)["id"], &id); err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	snap, ok := c.reg.LookupByID(id)
	if !ok {
		http.Error(w, "unknown id", http.StatusNotFound)
		return
	}
	writeJSON(w, lookupResponse{
		ID:       snap.ID,
		Tries:    snap.Tries,
		SeqStart: snap.SeqStart,
		Deadline: snap.Deadline.Format(timeLayout),
	})
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func (c *StateController) lookupToken(r *http.Request) (uint64, []byte, bool) {
	idStr := r.URL.Query().Get("request_id")
	var id uint64
	if _, err := fmt.Sscan(idStr, &id); err != nil {
		return 0, nil, false
	}
	c.lock()
	defer c.unlock()
	token, ok := c.tokens[id]
	return id, token, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
