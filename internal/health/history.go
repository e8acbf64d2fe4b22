package health

import "sync"

// historySize bounds how many records are retained per component.
const historySize = 10

// History keeps a bounded window of records per component for trend
// detection. Old records are discarded, never mutated.
type History struct {
	mu      sync.Mutex
	records map[string][]Record
}

func NewHistory() *History {
	return &History{records: make(map[string][]Record)}
}

// Append records one result, evicting the oldest entry once the window
// is full.
func (h *History) Append(record Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	window := append(h.records[record.Component], record)
	if len(window) > historySize {
		window = window[len(window)-historySize:]
	}
	h.records[record.Component] = window
}

// For returns the retained records for a component, oldest first.
func (h *History) For(component string) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Record(nil), h.records[component]...)
}

// Trend compares the oldest and newest retained records for a component.
func (h *History) Trend(component string) string {
	records := h.For(component)
	if len(records) < 2 {
		return "steady"
	}
	first := severity[records[0].Status]
	last := severity[records[len(records)-1].Status]
	switch {
	case last < first:
		return "improving"
	case last > first:
		return "degrading"
	default:
		return "steady"
	}
}
