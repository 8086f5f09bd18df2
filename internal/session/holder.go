package session

import (
	"context"
	"sync"
)

// Holder owns the single active session. It is acquired lazily and replaced
// wholesale after invalidation, never mutated.
type Holder struct {
	source Source

	lock    sync.Mutex
	current *Session
}

func NewHolder(source Source) *Holder {
	return &Holder{source: source}
}

// EnsureActive returns the active session, acquiring one first if there is none.
func (h *Holder) EnsureActive(ctx context.Context) (*Session, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.current != nil {
		return h.current, nil
	}
	sess, err := h.source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	h.current = sess
	return sess, nil
}

// Invalidate discards the active session so that the next EnsureActive
// acquires a new one.
func (h *Holder) Invalidate() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.current = nil
}

// Active reports whether a session is currently held.
func (h *Holder) Active() bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.current != nil
}
