package event

import (
	"context"
	"sync"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// Dispatcher implements domain.EventPublisher with synchronous in-process
// fan-out. Handlers are registered per event name at startup and the
// dispatcher is injected into the services that mutate the ledger; there
// is no package-level subscriber state.
type Dispatcher struct {
	mu       sync.RWMutex
	logger   domain.Logger
	handlers map[string][]domain.EventHandler
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(logger domain.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string][]domain.EventHandler),
	}
}

// Register attaches a handler to an event name.
// Call during startup wiring, before the dispatcher is in use.
func (d *Dispatcher) Register(eventName string, handler domain.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// Publish delivers the event to every handler registered for its name.
// Delivery is synchronous and in registration order. An event with no
// handlers is logged at Debug level and dropped.
func (d *Dispatcher) Publish(ctx context.Context, e domain.Event) {
	d.mu.RLock()
	handlers := d.handlers[e.EventName()]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Debug(ctx, "no handlers for event", map[string]interface{}{"event": e.EventName()})
		return
	}

	for _, handler := range handlers {
		handler(ctx, e)
	}
}
