// Package timer keeps one cancelable deadline per chat.
package timer

import (
	"sync"
	"time"
)

type armed struct {
	roundID string
	gen     uint64
	t       *time.Timer
}

// Registry arms at most one timer per chat. Arming again replaces the
// previous timer. A timer that already fired cannot be cancelled, so
// callbacks must re-check the state they act on.
type Registry struct {
	mu     sync.Mutex
	gen    uint64
	timers map[int64]*armed
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{timers: make(map[int64]*armed)}
}

// Arm schedules fn(roundID) for chatID after d.
func (r *Registry) Arm(chatID int64, roundID string, d time.Duration, fn func(roundID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.timers[chatID]; ok {
		prev.t.Stop()
	}

	r.gen++
	a := &armed{roundID: roundID, gen: r.gen}
	a.t = time.AfterFunc(d, func() {
		if !r.release(chatID, a.gen) {
			return
		}
		fn(roundID)
	})
	r.timers[chatID] = a
}

// release forgets the timer if it is still the current one for chatID.
func (r *Registry) release(chatID int64, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.timers[chatID]
	if !ok || a.gen != gen {
		return false
	}
	delete(r.timers, chatID)
	return true
}

// Cancel stops the chat's timer. It reports whether a pending timer was stopped.
func (r *Registry) Cancel(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.timers[chatID]
	if !ok {
		return false
	}
	delete(r.timers, chatID)
	return a.t.Stop()
}

// Pending returns the round a chat's timer is armed for.
func (r *Registry) Pending(chatID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.timers[chatID]
	if !ok {
		return "", false
	}
	return a.roundID, true
}

// Stop cancels every timer. Used on shutdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.timers {
		a.t.Stop()
		delete(r.timers, id)
	}
}
