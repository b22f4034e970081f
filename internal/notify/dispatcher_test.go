package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *captureSink) Emit(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversAll(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, 16)

	for i := 0; i < 10; i++ {
		d.Notify(Event{Title: "t", Message: "m"})
	}

	// Close drains everything queued before returning
	d.Close()

	assert.Equal(t, 10, sink.count())
	assert.Zero(t, d.Dropped())
}

func TestDispatcherSinkFailureDoesNotPropagate(t *testing.T) {
	sink := &captureSink{err: errors.New("webhook down")}
	d := NewDispatcher(sink, 4)

	// must not panic or block the producer
	d.Notify(Event{Title: "t", Message: "m"})
	d.Close()

	assert.Equal(t, 1, sink.count())
}

func TestDispatcherNotifyAfterClose(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, 4)
	d.Close()

	d.Notify(Event{Title: "late"})
	assert.Zero(t, sink.count())
}

func TestDispatcherNilSinkIsNoop(t *testing.T) {
	d := NewDispatcher(nil, 4)
	d.Notify(Event{Title: "t"})
	d.Close()
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := NewDispatcher(&captureSink{}, 4)
	d.Close()
	d.Close()
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Notify(Event{Title: "t"})
	d.Close()
	require.Zero(t, d.Dropped())
}
