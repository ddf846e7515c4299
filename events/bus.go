// Package events is the in-process broadcaster that lets the HTTP client, the session
// store and the cart cache react to one session transition without referencing each other.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/internal/metrics"
)

type Signal string

const (
	SessionInvalidated Signal = "session-invalidated"
	CartShouldRefresh  Signal = "cart-should-refresh"
)

// Broadcaster is the emit side of a Bus.
type Broadcaster interface {
	Emit(sig Signal)
}

type subscription struct {
	id      uint64
	handler func()
}

// Bus delivers signals synchronously, in registration order, to the subscribers registered
// when Emit is called. Nothing is queued or replayed.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Signal][]subscription
}

var _ Broadcaster = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{subs: make(map[Signal][]subscription)}
}

// Subscribe registers handler for sig. The returned func removes it and is safe to call twice.
func (b *Bus) Subscribe(sig Signal, handler func()) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[sig] = append(b.subs[sig], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sig, id) })
	}
}

func (b *Bus) remove(sig Signal, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sig]
	for i, s := range subs {
		if s.id == id {
			b.subs[sig] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sig]) == 0 {
		delete(b.subs, sig)
	}
}

// Emit calls every current subscriber of sig before returning. Handlers run without the bus
// lock held, so they may subscribe, unsubscribe or emit again.
func (b *Bus) Emit(sig Signal) {
	b.mu.RLock()
	handlers := make([]func(), len(b.subs[sig]))
	for i, s := range b.subs[sig] {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	log.Debug().Str("signal", string(sig)).Int("subscribers", len(handlers)).Msg("emit")
	metrics.SignalsEmitted.WithLabelValues(string(sig)).Inc()

	for _, h := range handlers {
		safeCall(sig, h)
	}
}

// Subscribers returns the number of handlers registered for sig.
func (b *Bus) Subscribers(sig Signal) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sig])
}

func safeCall(sig Signal, h func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("signal", string(sig)).Interface("panic", r).Msg("signal handler panicked")
		}
	}()
	h()
}
