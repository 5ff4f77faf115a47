package runner

import (
	"sync"

	"gametrack/internal/enrich"
)

// hub fans snapshots out to subscribers. Each subscriber holds at most one
// pending snapshot; a slow reader sees the latest state, not every state.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan enrich.Snapshot
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan enrich.Snapshot)}
}

func (h *hub) subscribe(initial enrich.Snapshot) (<-chan enrich.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan enrich.Snapshot, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- initial
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *hub) publish(snap enrich.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
