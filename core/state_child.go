package core

// Child-state adapter: nests per-subrequest state under a parent
// session's attribute bag, spec.md §4.4. Unlike the top-level
// Registry, this adapter has no token, no map, and no expiry — a
// ChildEntry lives exactly as long as the parent's request-data slot
// that references it.

// StoreInParent moves child's session bag and persistable data into a
// freshly allocated ChildEntry parented by parent.SessionStateCtx, and
// attaches it to parent as request-data keyed by (uniquePtr,
// uniqueInt). child is left with a fresh, empty session bag so a
// subsequent StoreInParent call for the same child (different key)
// starts clean. A no-op if child has nothing to save.
func StoreInParent(parent, child *Request, uniquePtr any, uniqueInt int) {
	if child.SessionStateCtx.Empty() && !child.data.hasPersistable() {
		return
	}

	ce := &ChildEntry{
		ctx:  child.SessionStateCtx,
		data: child.data.persistable(),
	}
	parent.data.add(RequestDataKey{UniquePtr: uniquePtr, UniqueInt: uniqueInt}, ce)

	child.SessionStateCtx = NewBag()
}

// RestoreToChild removes the ChildEntry keyed by (uniquePtr,
// uniqueInt) from parent's request-data and installs its contents onto
// child. Refuses (returns false) if the entry was already thawed by
// another request, mirroring the assertion in fr_state_restore_to_child.
// If nothing is stored under the key there is nothing to restore: child
// is left unchanged and RestoreToChild returns true.
func RestoreToChild(parent, child *Request, uniquePtr any, uniqueInt int) bool {
	key := RequestDataKey{UniquePtr: uniquePtr, UniqueInt: uniqueInt}
	v, ok := parent.data.get(key)
	if !ok {
		return true
	}
	ce, ok := v.(*ChildEntry)
	if !ok || ce.thawed != nil {
		return false
	}
	parent.data.remove(key)

	child.SessionStateCtx.Destroy()
	child.SessionStateCtx = ce.ctx
	ce.ctx = nil
	ce.thawed = child
	child.data.restore(ce.data)
	return true
}

// DiscardChild removes and frees the ChildEntry keyed by (uniquePtr,
// uniqueInt) from parent's request-data, if any.
func DiscardChild(parent *Request, uniquePtr any, uniqueInt int) {
	key := RequestDataKey{UniquePtr: uniquePtr, UniqueInt: uniqueInt}
	v, ok := parent.data.remove(key)
	if !ok {
		return
	}
	if ce, ok := v.(*ChildEntry); ok {
		ce.ctx.Destroy()
	}
}
