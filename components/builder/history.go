package builder

// DefaultHistoryLimit bounds the undo timeline.
const DefaultHistoryLimit = 50

// History is a bounded linear undo/redo timeline of snapshots. It is not safe
// for concurrent use; Builder serializes access.
type History struct {
	limit   int
	entries []Snapshot
	index   int
}

// NewHistory builds an empty history. A non-positive limit uses DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, index: -1}
}

// Push discards the redo branch, appends entry and drops the oldest entry once
// the limit is exceeded.
func (h *History) Push(entry Snapshot) {
	h.entries = append(h.entries[:h.index+1], entry.clone())
	if len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([]Snapshot(nil), h.entries[drop:]...)
	}
	h.index = len(h.entries) - 1
}

// Undo steps back one entry. It returns false at the start of the timeline.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	h.index--
	return h.entries[h.index].clone(), true
}

// Redo steps forward one entry. It returns false at the end of the timeline.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.index++
	return h.entries[h.index].clone(), true
}

// Current returns the entry at the cursor.
func (h *History) Current() (Snapshot, bool) {
	if h.index < 0 || h.index >= len(h.entries) {
		return Snapshot{}, false
	}
	return h.entries[h.index].clone(), true
}

// Reset replaces the timeline with a single baseline entry.
func (h *History) Reset(baseline Snapshot) {
	h.entries = []Snapshot{baseline.clone()}
	h.index = 0
}

func (h *History) CanUndo() bool { return h.index > 0 }

func (h *History) CanRedo() bool { return h.index >= 0 && h.index < len(h.entries)-1 }

func (h *History) Len() int { return len(h.entries) }

func (h *History) Index() int { return h.index }

func (h *History) Limit() int { return h.limit }
