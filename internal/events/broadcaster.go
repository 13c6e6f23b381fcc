// Package events provides the in-process completion broadcaster.
package events

import (
	"sync"
	"sync/atomic"
	"ura-backend/internal/domain"
)

type subscription struct {
	fn     func(domain.CompletionEvent)
	active atomic.Bool
}

// Broadcaster is a synchronous observer list. Emit calls every callback that
// is subscribed at the time of the call, in registration order, on the
// caller's goroutine. Callbacks may subscribe or unsubscribe re-entrantly.
type Broadcaster struct {
	mu   sync.Mutex
	subs []*subscription
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

var _ domain.CompletionBus = (*Broadcaster)(nil)

// Subscribe registers fn. The returned function removes it and is safe to
// call more than once.
func (b *Broadcaster) Subscribe(fn func(domain.CompletionEvent)) func() {
	s := &subscription{fn: fn}
	s.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() {
		if !s.active.CompareAndSwap(true, false) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, cur := range b.subs {
			if cur == s {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
	}
}

// Emit delivers evt. Subscribers added during delivery are not called for
// this event; subscribers removed during delivery are skipped if not yet
// reached.
func (b *Broadcaster) Emit(evt domain.CompletionEvent) {
	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		if s.active.Load() {
			s.fn(evt)
		}
	}
}

// Len reports the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
