package tracking

import "github.com/dshills/redline/internal/engine/change"

// history is a bounded ring of resolved changes, oldest evicted first.
type history struct {
	entries []change.Change
	head    int // index of oldest entry
	count   int
	index   map[string]int
}

func newHistory(capacity int) *history {
	if capacity < 0 {
		capacity = 0
	}
	return &history{
		entries: make([]change.Change, capacity),
		index:   make(map[string]int, capacity),
	}
}

func (h *history) push(c change.Change) {
	capacity := len(h.entries)
	if capacity == 0 {
		return
	}

	idx := (h.head + h.count) % capacity
	if h.count < capacity {
		h.count++
	} else {
		// Ring is full, evict the oldest entry.
		evicted := h.entries[idx]
		if slot, ok := h.index[evicted.ID]; ok && slot == idx {
			delete(h.index, evicted.ID)
		}
		h.head = (h.head + 1) % capacity
	}

	h.entries[idx] = c
	h.index[c.ID] = idx
}

func (h *history) get(id string) (change.Change, bool) {
	idx, ok := h.index[id]
	if !ok {
		return change.Change{}, false
	}
	return h.entries[idx], true
}

func (h *history) has(id string) bool {
	_, ok := h.index[id]
	return ok
}

// remove leaves a tombstone in the ring; the slot is reclaimed on eviction.
func (h *history) remove(id string) bool {
	idx, ok := h.index[id]
	if !ok {
		return false
	}
	delete(h.index, id)
	h.entries[idx] = change.Change{}
	return true
}

// list returns resolved changes oldest first.
func (h *history) list() []change.Change {
	out := make([]change.Change, 0, len(h.index))
	for i := 0; i < h.count; i++ {
		c := h.entries[(h.head+i)%len(h.entries)]
		if c.ID != "" {
			out = append(out, c)
		}
	}
	return out
}

func (h *history) reset() {
	clear(h.entries)
	clear(h.index)
	h.head = 0
	h.count = 0
}
