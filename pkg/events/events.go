// Package events implements the engine's event-notification contract: a
// capability set {on(event, handler)} backed by a registry keyed on
// event name. Dispatch is synchronous and best-effort; a listener panic
// or error is isolated so it never affects engine correctness.
package events

import (
	"sync"

	"log/slog"
)

// Name is one of the engine's named events.
type Name string

const (
	Add                 Name = "add"
	Update              Name = "update"
	Delete              Name = "delete"
	CreateTable         Name = "createTable"
	DeleteTable         Name = "deleteTable"
	CreateIndex         Name = "createIndex"
	CommitTransaction   Name = "commitTransaction"
	RollbackTransaction Name = "rollbackTransaction"
)

// Handler receives a borrowed payload; it must not retain or mutate it
// after returning.
type Handler func(payload any)

// Registry dispatches named events to every handler registered for them.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	logger   *slog.Logger
}

// NewRegistry returns an empty registry. logger may be nil, in which
// case listener failures are dropped silently rather than logged.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[Name][]Handler),
		logger:   logger,
	}
}

// On registers handler for name. Handlers fire in registration order.
func (r *Registry) On(name Name, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = append(r.handlers[name], handler)
}

// Emit synchronously calls every handler registered for name with
// payload. A handler that panics is recovered and logged; it never
// prevents the remaining handlers from running or propagates to Emit's
// caller, since listener failure must not affect engine correctness.
func (r *Registry) Emit(name Name, payload any) {
	r.mu.RLock()
	handlers := append([]Handler(nil), r.handlers[name]...)
	r.mu.RUnlock()

	for _, h := range handlers {
		r.callSafely(name, h, payload)
	}
}

func (r *Registry) callSafely(name Name, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil && r.logger != nil {
			r.logger.Error("event listener panicked", "event", string(name), "recover", rec)
		}
	}()
	h(payload)
}
