package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config configures a Registry, mirroring fr_state_tree_init's
// parameters in state.c.
type Config struct {
	ThreadSafe     bool
	MaxSessions    uint32
	Timeout        time.Duration
	ServerID       byte
	ContextID      uint32
	// StateAttribute defaults to "State". The registry keeps the value,
	// but Freeze, Thaw and Discard always read and write the attribute
	// named "State", whatever this is set to.
	StateAttribute string

	// OnFreeze, if set, is called once per Freeze with its wall-clock
	// duration (every return path, including noop/fail). Used to feed
	// pkg/metrics' freeze_duration_seconds histogram; nil is a valid
	// no-op for callers that don't care.
	OnFreeze func(time.Duration)
}

// Registry is the top-level state-registry API of spec.md §4.3: the
// token-keyed map plus expiry list that holds all live entries for one
// instance, plus the counters and configuration that govern them.
type Registry struct {
	id  uuid.UUID // registry instance id, log fields only
	cfg Config
	log *logrus.Entry

	// mu guards store, nextID, usedSessions and timedOut. It is the
	// single mutex spec.md §5 calls "enabled at construction"; when
	// cfg.ThreadSafe is false every method still takes it (an
	// uncontended mutex lock is cheap), since the split-critical-region
	// protocol of §4.3 never depends on thread_safe being false for
	// correctness, only for avoiding lock overhead the original cared
	// about at the C level.
	mu           sync.Mutex
	store        *stateStore
	nextID       uint64
	usedSessions uint32
	timedOut     uint64
}

// New builds a Registry per spec.md §6 init(...).
func New(cfg Config) *Registry {
	if cfg.StateAttribute == "" {
		cfg.StateAttribute = stateAttrName
	}
	r := &Registry{
		id:    uuid.New(),
		cfg:   cfg,
		store: newStateStore(),
	}
	r.log = logrus.WithFields(logrus.Fields{
		"component":  "state_registry",
		"registry":   r.id.String(),
		"server_id":  cfg.ServerID,
		"context_id": cfg.ContextID,
	})
	return r
}

// CountCreated returns the number of entry ids ever assigned. Freeze
// assigns a fresh id each time it mints a token, including when it
// reuses the entry the request had thawed, so an n-round conversation
// counts n times.
func (r *Registry) CountCreated() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextID
}

// CountTimedOut returns the number of entries reaped by the expiry
// sweeper.
func (r *Registry) CountTimedOut() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timedOut
}

// CountLive returns the number of entries not yet freed.
func (r *Registry) CountLive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.usedSessions)
}

// EntrySnapshot is a read-only diagnostic view of a live entry, sourced
// from the store's by-id debug index rather than the token-keyed map.
// spec.md's registry has no "lookup by id" operation; this exists
// purely for operator tooling (aaactl/httpadmin) layered on top of it.
type EntrySnapshot struct {
	ID       uint64
	Tries    uint8
	SeqStart uint64
	Deadline time.Time
}

// LookupByID returns a diagnostic snapshot of the live entry with the
// given numeric id, if any. Backed by the store's bounded LRU debug
// index, so a miss does not prove the entry never existed — only that
// it aged out of the index or was never inserted.
func (r *Registry) LookupByID(id uint64) (EntrySnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.store.byID(id)
	if !ok {
		return EntrySnapshot{}, false
	}
	return EntrySnapshot{ID: e.id, Tries: e.tries, SeqStart: e.seqStart, Deadline: e.deadline}, true
}

// freeExpired runs destructors for entries swept out of the store.
// Called outside the lock, per spec.md §4.2: user-supplied destructors
// (here, Bag.Destroy) may be expensive or re-enter registry operations.
func (r *Registry) freeExpired(expired []*StateEntry) {
	if len(expired) == 0 {
		return
	}
	r.mu.Lock()
	r.usedSessions -= uint32(len(expired))
	r.mu.Unlock()

	for _, e := range expired {
		r.log.WithFields(logrus.Fields{"id": e.id, "tries": e.tries}).Debug("state entry timed out, freeing")
		e.ctx.Destroy()
	}
}

// Freeze moves request's session attribute bag and persistable
// request-data into a state entry, per spec.md §4.3.
//
// Ordering follows the split-critical-region protocol exactly:
//  1. lock, 2. sweep, 3. compute capacity/reuse, 4. unlock,
//  5. free to-free list + allocate/recycle, 6. lock,
//  7. XOR context + insert, 8. unlock.
func (r *Registry) Freeze(req *Request) FreezeResult {
	if r.cfg.OnFreeze != nil {
		start := time.Now()
		defer func() { r.cfg.OnFreeze(time.Since(start)) }()
	}

	if req.SessionStateCtx.Empty() && !req.data.hasPersistable() {
		r.log.WithField("request", req.Number).Debug("freeze: nothing to save, noop")
		return FreezeNoop
	}

	old, hadOld := req.data.get(RequestDataKey{UniquePtr: r, UniqueInt: 0})
	var oldEntry *StateEntry
	if hadOld {
		oldEntry, _ = old.(*StateEntry)
	}

	now := time.Now()

	r.mu.Lock()
	expired := r.store.sweep(now)
	r.timedOut += uint64(len(expired))

	var tooMany bool
	if oldEntry == nil {
		tooMany = r.usedSessions == r.cfg.MaxSessions
		if !tooMany {
			r.usedSessions++
		}
	}
	r.mu.Unlock()

	r.freeExpired(expired)

	if tooMany {
		// Persistable request-data was never drained from req (that
		// only happens below, once capacity is confirmed), so it is
		// already "restored" in the sense spec.md §7 requires.
		r.log.WithField("max_sessions", r.cfg.MaxSessions).Error("freeze failed: at maximum ongoing session limit")
		return FreezeFail
	}

	var entry *StateEntry
	var prevToken *[TokenLen]byte
	if oldEntry != nil {
		oldEntry.ctx.Destroy()
		entry = oldEntry
		tok := entry.token
		prevToken = &tok
	} else {
		entry = &StateEntry{}
	}

	entry.data = nil
	newToken, tries := EmitToken(prevToken, r.cfg.ContextID, r.cfg.ServerID)

	r.mu.Lock()
	entry.id = r.nextID
	r.nextID++
	entry.tries = tries
	entry.deadline = now.Add(r.cfg.Timeout)
	entry.token = newToken
	entry.seqStart = req.SeqStart
	entry.ctx = req.SessionStateCtx
	entry.data = req.data.persistable()
	entry.thawed = nil

	if !r.store.insert(entry) {
		// CSPRNG collision: programming-error-grade event, spec.md §7.
		if oldEntry == nil {
			r.usedSessions--
		}
		r.mu.Unlock()
		r.log.Error("freeze failed: state token collision on insert")
		req.removeReplyState()
		req.data.restore(entry.data)
		return FreezeFail
	}
	r.mu.Unlock()

	req.AppendReplyState(WireToken(newToken, r.cfg.ContextID))
	req.SessionStateCtx = NewBag()

	r.log.WithFields(logrus.Fields{"id": entry.id, "tries": entry.tries, "request": req.Number}).Debug("freeze: state saved")
	return FreezeOK
}

// Thaw locates the State attribute on req, looks up the matching
// entry, and transfers its contents onto req, per spec.md §4.3.
func (r *Registry) Thaw(req *Request) ThawResult {
	raw, ok := req.StateAttr()
	if !ok {
		if req.SeqStart == 0 {
			req.SeqStart = req.Number
		}
		r.log.WithField("request", req.Number).Debug("thaw: no State attribute")
		return ThawNoStateAttr
	}

	key := ParseToken(raw, r.cfg.ContextID)

	r.mu.Lock()
	entry := r.store.remove(key)
	r.mu.Unlock()

	if entry == nil {
		r.log.WithField("request", req.Number).Debug("thaw: unknown state")
		return ThawUnknownState
	}

	if entry.thawed != nil {
		// Hard invariant breach (spec.md §9 Open Question): report it
		// without touching the lock a second time.
		r.log.WithFields(logrus.Fields{"id": entry.id, "thawed_by": entry.thawed.Number}).
			Error("thaw: state entry already thawed")
		return ThawAlreadyThawed
	}

	oldCtx := req.SessionStateCtx

	req.SeqStart = entry.seqStart
	req.SessionStateCtx = entry.ctx
	req.data.restore(entry.data)
	req.data.add(RequestDataKey{UniquePtr: r, UniqueInt: 0}, entry)
	req.Sequence = int(entry.tries)

	entry.ctx = nil
	entry.thawed = req
	entry.data = nil

	oldCtx.Destroy()

	r.log.WithFields(logrus.Fields{"id": entry.id, "tries": entry.tries, "request": req.Number}).Debug("thaw: state restored")
	return ThawRestored
}

// Discard destroys the entry matching req's State attribute, if any,
// whether it is still in the store or was already thawed by req, and
// replaces req's session bag with a fresh empty one. Called on
// terminal responses (Access-Accept, Access-Reject).
func (r *Registry) Discard(req *Request) {
	raw, ok := req.StateAttr()
	if !ok {
		return
	}
	key := ParseToken(raw, r.cfg.ContextID)

	// A thawed entry is no longer in the store: req holds it as
	// request-data for reuse. Take it out of that slot so a later
	// Freeze doesn't try to reuse a freed entry.
	slot, hadSlot := req.data.remove(RequestDataKey{UniquePtr: r, UniqueInt: 0})

	r.mu.Lock()
	entry := r.store.remove(key)
	if entry == nil && hadSlot {
		entry, _ = slot.(*StateEntry)
	}
	if entry != nil {
		r.usedSessions--
	}
	r.mu.Unlock()

	if entry != nil {
		r.log.WithField("id", entry.id).Debug("discard: state entry freed")
		entry.ctx.Destroy()
	}

	req.SessionStateCtx.Destroy()
	req.SessionStateCtx = NewBag()
	r.log.WithField("request", req.Number).Debug("discard: session bag reset")
}
