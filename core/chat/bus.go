package chat

import (
	"fmt"
	"sync"

	"github.com/darasahq/darasa/core"
)

type (
	// Handler receives the payload passed to Emit.
	Handler func(payload interface{})

	busEntry struct {
		handler Handler
	}

	// Bus is a process-wide publish/subscribe hub decoupling the
	// realtime transport from the views consuming it. Dispatch is
	// synchronous and in registration order; there is no buffering or
	// replay, so handlers registered after an emission never see it.
	// Instances are dependency-injected so tests can run isolated buses.
	Bus struct {
		mu       sync.Mutex
		handlers map[string][]*busEntry
		logger   core.Logger
	}
)

func NewBus(logger core.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]*busEntry),
		logger:   logger,
	}
}

// On registers a handler for the named event and returns its disposer.
// Multiple handlers per event are allowed.
func (b *Bus) On(event string, h Handler) func() {
	entry := &busEntry{handler: h}

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], entry)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[event]
		for i, e := range entries {
			if e == entry {
				b.handlers[event] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Emit synchronously invokes all currently-registered handlers for the
// event. A panicking handler never prevents the remaining handlers from
// running.
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.Lock()
	entries := make([]*busEntry, len(b.handlers[event]))
	copy(entries, b.handlers[event])
	b.mu.Unlock()

	for _, e := range entries {
		b.dispatch(event, e.handler, payload)
	}
}

func (b *Bus) dispatch(event string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error(fmt.Sprintf("bus: %s handler panicked: %v", event, r))
		}
	}()
	h(payload)
}
