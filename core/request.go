package core

import "sync"

// Pair is a single session-state attribute. The registry never
// interprets the value; it only moves pairs between bags.
type Pair struct {
	Name  string
	Value any
}

// Bag is the hierarchical owner of a request or entry's session-state
// attributes, standing in for FreeRADIUS's talloc-parented fr_pair_t
// list. Destroying a Bag releases every attribute parented beneath it
// in one step, the re-expression spec.md §9 asks for in place of a
// manual talloc arena.
type Bag struct {
	mu    sync.Mutex
	pairs []Pair
}

// NewBag returns an empty attribute bag.
func NewBag() *Bag { return &Bag{} }

// Append adds a pair to the bag.
func (b *Bag) Append(p Pair) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairs = append(b.pairs, p)
}

// Pairs returns a copy of the bag's pairs.
func (b *Bag) Pairs() []Pair {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Pair, len(b.pairs))
	copy(out, b.pairs)
	return out
}

// Empty reports whether the bag holds no attributes.
func (b *Bag) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pairs) == 0
}

// Destroy releases the bag's contents. Safe to call on nil.
func (b *Bag) Destroy() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairs = nil
}

// RequestDataKey identifies a persistable request-data item the way
// FreeRADIUS keys request data: by the pointer of the thing that owns
// it plus an integer discriminator (spec.md §3, "Data model").
type RequestDataKey struct {
	UniquePtr any
	UniqueInt int
}

// RequestDataItem is one persistable request-data item, carried
// unmodified between a request and the state entry that owns it
// between rounds.
type RequestDataItem struct {
	Key   RequestDataKey
	Value any
}

// requestData is the subset of a request's request-data store the
// core touches: persistable items (moved wholesale between request and
// entry) and a slot the registry uses to stash a live *StateEntry for
// reuse on the next Freeze and disposal on Discard.
type requestData struct {
	mu     sync.Mutex
	items  []RequestDataItem
	slots  map[RequestDataKey]any
	entry  *StateEntry // request_data_add(request, state, 0, entry, ...) in state.c
}

func newRequestData() *requestData {
	return &requestData{slots: make(map[RequestDataKey]any)}
}

// hasPersistable reports whether any persistable request-data item is
// queued, without draining it.
func (d *requestData) hasPersistable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items) > 0
}

// persistable removes and returns every persistable request-data item,
// mirroring request_data_by_persistance(&data, request, true).
func (d *requestData) persistable() []RequestDataItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.items
	d.items = nil
	return out
}

func (d *requestData) restore(items []RequestDataItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, items...)
}

func (d *requestData) get(key RequestDataKey) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.slots[key]
	return v, ok
}

func (d *requestData) add(key RequestDataKey, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots[key] = v
}

func (d *requestData) remove(key RequestDataKey) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.slots[key]
	delete(d.slots, key)
	return v, ok
}

// Request is the collaborator surface the core consumes from the
// request-processing pipeline, scoped to exactly the fields and
// operations spec.md §6 lists against FreeRADIUS's request_t.
type Request struct {
	Number   uint64 // request.number
	SeqStart uint64 // request.seq_start
	Sequence int    // request.sequence

	Parent *Request

	RequestPairs *Bag // request.request_pairs (inbound State attribute lives here)
	ReplyPairs   *Bag // request.reply_pairs (outbound State attribute appended here)

	SessionStateCtx *Bag // request.session_state_ctx

	data *requestData
}

// NewRequest returns a Request ready for use by the registry. number is
// the caller-assigned request number used for seq_start bookkeeping and
// logging.
func NewRequest(number uint64) *Request {
	return &Request{
		Number:          number,
		RequestPairs:    NewBag(),
		ReplyPairs:      NewBag(),
		SessionStateCtx: NewBag(),
		data:            newRequestData(),
	}
}

// StateAttr returns the inbound State attribute value, if present.
// Mirrors pair_find_by_attr(request->request_pairs, state_da).
func (r *Request) StateAttr() ([]byte, bool) {
	for _, p := range r.RequestPairs.Pairs() {
		if p.Name == stateAttrName {
			if b, ok := p.Value.([]byte); ok {
				return b, true
			}
		}
	}
	return nil, false
}

// AppendReplyState appends the (pre-XOR, on-the-wire) State attribute
// to the reply. Mirrors pair_append(request->reply_pairs, vp).
func (r *Request) AppendReplyState(token [TokenLen]byte) {
	r.ReplyPairs.Append(Pair{Name: stateAttrName, Value: append([]byte(nil), token[:]...)})
}

// removeReplyState rolls back a previously appended reply State
// attribute, mirroring fr_pair_delete_by_da(reply_list, state->da) on
// the insertion-failure path of state_entry_create.
func (r *Request) removeReplyState() {
	pairs := r.ReplyPairs.Pairs()
	kept := make([]Pair, 0, len(pairs))
	removed := false
	for _, p := range pairs {
		if !removed && p.Name == stateAttrName {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	r.ReplyPairs.mu.Lock()
	r.ReplyPairs.pairs = kept
	r.ReplyPairs.mu.Unlock()
}

// stateAttrName is the name of the State attribute in the (external,
// unmodeled) attribute dictionary. The core only needs a stable key to
// find it by, per spec.md §6.
const stateAttrName = "State"
