package event

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mattjoyce/palisade/internal/log"
)

// HandlerFunc processes one event payload and returns the acknowledgement
// message for the platform.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (string, error)

// Outcome reports how a dispatch concluded.
type Outcome struct {
	// Handled is true when a registered handler ran.
	Handled bool

	// Message is the acknowledgement text returned to the platform.
	Message string
}

// Dispatcher routes events to handlers by type tag. Each tag has at most one
// handler; registration happens at startup, before any dispatching.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   log.WithComponent("event"),
	}
}

// Register binds a handler to an event type, replacing any previous binding.
func (d *Dispatcher) Register(eventType string, handler HandlerFunc) {
	d.handlers[eventType] = handler
}

// Dispatch invokes the handler registered for ev.Type. An event nobody
// registered for is not an error: it is acknowledged with "no action
// required" so new platform event types pass through harmlessly.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	handler, ok := d.handlers[ev.Type]
	if !ok {
		d.logger.Debug("no handler for event type", "event_type", ev.Type)
		return Outcome{Handled: false, Message: "no action required"}, nil
	}

	message, err := handler(ctx, ev.Data)
	if err != nil {
		return Outcome{Handled: true}, err
	}

	return Outcome{Handled: true, Message: message}, nil
}
