// ABOUTME: Sliding window of recently handled event IDs
// ABOUTME: Suppresses events that /sync replays after reconnects or restarts

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type record struct {
	id   string
	seen time.Time
}

// Window remembers event IDs for ttl, holding at most capacity of them.
// Records are kept in arrival order, so expiry and overflow both trim from
// the oldest end.
type Window struct {
	mu       sync.Mutex
	index    map[string]*list.Element
	order    *list.List
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewWindow creates a Window. A capacity below 1 is treated as 1.
func NewWindow(ttl time.Duration, capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		index:    make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// First reports whether id is new within the window and records it.
// A second call with the same id returns false until the record expires.
func (w *Window) First(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)

	if _, ok := w.index[id]; ok {
		return false
	}

	for w.order.Len() >= w.capacity {
		w.dropLocked(w.order.Front())
	}
	w.index[id] = w.order.PushBack(record{id: id, seen: now})
	return true
}

// contains reports whether id is in the window without recording it.
func (w *Window) contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())
	_, ok := w.index[id]
	return ok
}

// Len returns the number of live records.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())
	return w.order.Len()
}

func (w *Window) pruneLocked(now time.Time) {
	for e := w.order.Front(); e != nil; e = w.order.Front() {
		if now.Sub(e.Value.(record).seen) < w.ttl {
			return
		}
		w.dropLocked(e)
	}
}

func (w *Window) dropLocked(e *list.Element) {
	rec := w.order.Remove(e).(record)
	delete(w.index, rec.id)
}
