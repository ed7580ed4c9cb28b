package monitor

import (
	"sync"

	"RiskSentinel/internal/model"
)

// History is a fixed-capacity ring of the most recent alerts, newest last.
// All reads and writes go through its mutex; Admit is the only writer.
type History struct {
	mu       sync.RWMutex
	data     []model.Alert
	capacity int
	index    int // next write position
	size     int
}

// NewHistory creates a History holding at most capacity alerts.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 200
	}
	return &History{
		data:     make([]model.Alert, capacity),
		capacity: capacity,
	}
}

// Admit filters batch through the dedup window and appends the survivors as
// one atomic step. Each admitted alert is visible to the checks of the alerts
// after it in the same batch.
func (h *History) Admit(batch []model.Alert, window DedupWindow) (admitted, suppressed []model.Alert) {
	if len(batch) == 0 {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, a := range batch {
		if window.IsDuplicate(h.latest(window.Size), a) {
			suppressed = append(suppressed, a)
			continue
		}
		h.append(a)
		admitted = append(admitted, a)
	}
	return admitted, suppressed
}

// Recent returns a copy of the last n alerts, oldest first.
func (h *History) Recent(n int) []model.Alert {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest(n)
}

// Len returns the number of retained alerts.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) append(a model.Alert) {
	h.data[h.index] = a
	h.index = (h.index + 1) % h.capacity
	if h.size < h.capacity {
		h.size++
	}
}

func (h *History) latest(n int) []model.Alert {
	if h.size == 0 || n <= 0 {
		return []model.Alert{}
	}
	if n > h.size {
		n = h.size
	}
	out := make([]model.Alert, n)
	start := (h.index - n + h.capacity) % h.capacity
	for i := 0; i < n; i++ {
		out[i] = h.data[(start+i)%h.capacity]
	}
	return out
}
