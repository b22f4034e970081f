package notify

import "context"

// Event is a human-readable notification about something that happened:
// a registration, a payment resolution, a system error.
type Event struct {
	Title   string
	Message string
}

// Sink delivers events somewhere. Delivery is best-effort; a sink error
// is logged by the dispatcher and never reaches the operation that
// produced the event.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

type NoopSink struct{}

func (NoopSink) Emit(context.Context, Event) error { return nil }

// Notifier is the producer-side surface of the dispatcher.
type Notifier interface {
	Notify(ev Event)
}
