// Package events delivers engine notifications (record changes, cycle
// reports, sync status) to UI-side subscribers.
package events

import (
	"sync"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must return quickly.
type Handler func(models.Event)

// Publisher is the sending side of a [Bus].
type Publisher interface {
	Publish(event models.Event)
}

// Bus is a fan-out of events to subscribed handlers. The zero value is not
// usable; create one with [NewBus].
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
	logger   *logger.Logger
}

// NewBus returns an empty bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{handlers: make(map[uint64]Handler), logger: log}
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Publish delivers event to every current subscriber. A panicking handler is
// logged and does not affect the others.
func (b *Bus) Publish(event models.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, event)
	}
}

func (b *Bus) deliver(h Handler, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("func", "Bus.deliver").
				Str("event", event.EventName()).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(event)
}
