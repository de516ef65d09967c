package core

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// stateStore is the map keyed by the 16-byte stored token (a Go map;
// nothing iterates it, so it keeps no key order), plus
// the insertion-ordered expiry list described in spec.md §3/§4.2. Both
// structures are mutated only while the Registry's lock is held; the
// store itself does no locking of its own (the split-critical-region
// protocol in spec.md §4.3 is the registry's responsibility).
type stateStore struct {
	byToken map[[TokenLen]byte]*StateEntry
	head    *StateEntry // oldest deadline
	tail    *StateEntry // newest deadline

	// idIndex is a bounded, advisory-only index from numeric id to
	// entry, used exclusively for O(1) debug/log lookups by id. It is
	// never consulted by insert/remove/sweep correctness paths: the
	// token map remains the sole source of truth, so LRU eviction of
	// idIndex entries can never desynchronize the registry.
	idIndex *lru.Cache[uint64, *StateEntry]
}

const idIndexSize = 4096

func newStateStore() *stateStore {
	idx, err := lru.New[uint64, *StateEntry](idIndexSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// idIndexSize never is.
		panic("core: lru.New: " + err.Error())
	}
	return &stateStore{
		byToken: make(map[[TokenLen]byte]*StateEntry),
		idIndex: idx,
	}
}

// insert adds entry to the map and appends it to the tail of the expiry
// list. Returns false if an entry with the same token is already
// present (map insert collision, spec.md §7).
func (s *stateStore) insert(entry *StateEntry) bool {
	if _, exists := s.byToken[entry.token]; exists {
		return false
	}
	s.byToken[entry.token] = entry
	entry.inStore = true

	entry.listPrev = s.tail
	entry.listNext = nil
	if s.tail != nil {
		s.tail.listNext = entry
	} else {
		s.head = entry
	}
	s.tail = entry

	s.idIndex.Add(entry.id, entry)
	return true
}

// remove unlinks and returns the entry matching key, or nil.
func (s *stateStore) remove(key [TokenLen]byte) *StateEntry {
	entry, ok := s.byToken[key]
	if !ok {
		return nil
	}
	s.unlink(entry)
	return entry
}

// unlink removes entry from both the map and the expiry list. Safe to
// call only while holding the registry lock.
func (s *stateStore) unlink(entry *StateEntry) {
	delete(s.byToken, entry.token)
	s.idIndex.Remove(entry.id)

	if entry.listPrev != nil {
		entry.listPrev.listNext = entry.listNext
	} else if s.head == entry {
		s.head = entry.listNext
	}
	if entry.listNext != nil {
		entry.listNext.listPrev = entry.listPrev
	} else if s.tail == entry {
		s.tail = entry.listPrev
	}
	entry.listPrev, entry.listNext = nil, nil
	entry.inStore = false
}

// len reports the number of entries currently in the store.
func (s *stateStore) len() int { return len(s.byToken) }

// byID looks up a live entry by its numeric id, for diagnostics only.
func (s *stateStore) byID(id uint64) (*StateEntry, bool) {
	return s.idIndex.Get(id)
}

// sweep walks the expiry list from the head — which is monotone in
// deadline because timeout is fixed per registry and entries are
// appended at mint time — unlinking every entry whose deadline has
// passed and returning them for the caller to free outside the lock,
// per spec.md §4.2. It stops at the first non-expired entry.
func (s *stateStore) sweep(now time.Time) []*StateEntry {
	var expired []*StateEntry
	for e := s.head; e != nil; {
		if !e.deadline.Before(now) {
			break
		}
		next := e.listNext
		s.unlink(e)
		expired = append(expired, e)
		e = next
	}
	return expired
}
