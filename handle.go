package jdeserialize

// handleTable tracks the mapping from wire handle to content for the current
// epoch, plus the archive of maps flushed by stream resets. Handles are
// assigned in first-appearance order starting at baseWireHandle; a reset
// archives the active map (if non-empty) and starts the counter over.
type handleTable struct {
	next     int32
	active   map[int32]Content
	archived []map[int32]Content
}

func newHandleTable() *handleTable {
	return &handleTable{
		next:   baseWireHandle,
		active: make(map[int32]Content),
	}
}

// alloc returns the next handle and advances the counter.
func (t *handleTable) alloc() int32 {
	h := t.next
	t.next++
	return h
}

// bind records a new handle binding. Rebinding within an epoch is a fatal
// decode error.
func (t *handleTable) bind(h int32, c Content) error {
	if _, ok := t.active[h]; ok {
		return validityErrorf("trying to rebind handle %s", hx(int64(h)))
	}
	t.active[h] = c
	return nil
}

// resolve looks a handle up in the current epoch only.
func (t *handleTable) resolve(h int32) (Content, error) {
	c, ok := t.active[h]
	if !ok {
		return nil, validityErrorf("can't find an entry for handle %s", hx(int64(h)))
	}
	return c, nil
}

// reset archives a non-empty active map and re-initializes the counter.
func (t *handleTable) reset() {
	if len(t.active) > 0 {
		t.archived = append(t.archived, t.active)
		t.active = make(map[int32]Content)
	}
	t.next = baseWireHandle
}
