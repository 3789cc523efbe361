package forgehook

import (
	"context"
	"sort"
	"sync"
)

// EventWildcard registers a handler for every event
const EventWildcard = "*"

// Handler consumes one delivery. A returned error marks the handler's
// outcome as failed without stopping sibling handlers.
type Handler interface {
	Handle(ctx context.Context, delivery *Delivery) error
}

// HandlerFunc adapts a plain function to the Handler interface
type HandlerFunc func(ctx context.Context, delivery *Delivery) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, delivery *Delivery) error {
	return f(ctx, delivery)
}

// Registration pairs a handler with the canonical event name it was
// registered under.
type Registration struct {
	Event   string
	Handler Handler
}

// Registry holds handlers keyed by canonical event name, preserving
// registration order per event. It is safe for concurrent use, though
// registration normally happens once during setup before serving
// begins.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Registration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]Registration),
	}
}

// On appends handler to the list for event. The name is normalized
// first, so "Push Hook" and "push_hook" share one list. Repeated
// registrations accumulate rather than replace.
func (r *Registry) On(event string, handler Handler) {
	event = NormalizeEvent(event)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = append(r.handlers[event], Registration{Event: event, Handler: handler})
}

// OnFunc registers a plain function for event
func (r *Registry) OnFunc(event string, handler func(ctx context.Context, delivery *Delivery) error) {
	r.On(event, HandlerFunc(handler))
}

// Match returns the handlers to invoke for event: wildcard
// registrations first, then registrations for the exact name, each
// slice in registration order.
func (r *Registry) Match(event string) []Registration {
	event = NormalizeEvent(event)

	r.mu.RLock()
	defer r.mu.RUnlock()

	wildcard := r.handlers[EventWildcard]
	specific := r.handlers[event]
	if event == EventWildcard {
		specific = nil
	}

	matched := make([]Registration, 0, len(wildcard)+len(specific))
	matched = append(matched, wildcard...)
	matched = append(matched, specific...)
	return matched
}

// Events returns the distinct event names with at least one
// registration, sorted for deterministic output.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]string, 0, len(r.handlers))
	for event := range r.handlers {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// Len reports the number of registered handlers across all events
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, regs := range r.handlers {
		total += len(regs)
	}
	return total
}
