package service

import (
	"strings"
	"sync"

	dom "linkshell/internal/services/pipeline/domain"
)

// History is the bounded ring of recent messages, indexed by id.
// Once full, the oldest message is evicted on every insert
type History struct {
	mu   sync.RWMutex
	ring []int64
	head int
	n    int
	byID map[int64]*dom.Message
}

// NewHistory builds a ring holding at most size messages
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{
		ring: make([]int64, size),
		byID: make(map[int64]*dom.Message, size),
	}
}

// Add stores a copy of m, evicting the oldest entry when full
func (h *History) Add(m dom.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n == len(h.ring) {
		delete(h.byID, h.ring[h.head])
	} else {
		h.n++
	}
	h.ring[h.head] = m.ID
	h.head = (h.head + 1) % len(h.ring)
	cp := m
	h.byID[m.ID] = &cp
}

// Get returns a snapshot of message id
func (h *History) Get(id int64) (dom.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.byID[id]
	if !ok {
		return dom.Message{}, false
	}
	return *m, true
}

// Update applies fn to message id under the lock. fn reports whether it changed
// the message; the returned snapshot reflects the state after fn
func (h *History) Update(id int64, fn func(*dom.Message) bool) (dom.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.byID[id]
	if !ok {
		return dom.Message{}, false
	}
	changed := fn(m)
	return *m, changed
}

// List returns matching messages, newest first
func (h *History) List(q dom.Query) []dom.Message {
	var want *dom.Status
	if q.Status != "" {
		if st, err := dom.ParseStatus(q.Status); err == nil {
			want = &st
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]dom.Message, 0, min(limit, h.n))
	for i := 1; i <= h.n && len(out) < limit; i++ {
		idx := (h.head - i + len(h.ring)) % len(h.ring)
		m := h.byID[h.ring[idx]]
		if m == nil {
			continue
		}
		if want != nil && m.Status != *want {
			continue
		}
		if q.Channel != "" && !strings.EqualFold(m.Channel, q.Channel) {
			continue
		}
		if q.Sender != "" && !strings.EqualFold(m.Sender, q.Sender) {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// Len is the number of stored messages
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}
