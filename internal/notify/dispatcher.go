package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"mococa-backend/internal/logger"
)

// Dispatcher decouples event producers from sink delivery. Notify never
// blocks the caller: events go through a bounded buffer and are dropped
// with a counter when it is full. Close drains whatever is queued before
// returning, discarding individual delivery failures.
type Dispatcher struct {
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if sink == nil {
		sink = NoopSink{}
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		sink: sink,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.ch:
			d.emit(ev)
		case <-d.done:
			for {
				select {
				case ev := <-d.ch:
					d.emit(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) emit(ev Event) {
	if err := d.sink.Emit(context.Background(), ev); err != nil {
		logger.Error("notification delivery failed", map[string]any{
			"title": ev.Title,
			"error": err.Error(),
		})
	}
}

// Notify queues an event for delivery. Safe to call from any goroutine;
// never blocks and never fails the caller.
func (d *Dispatcher) Notify(ev Event) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- ev:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Close stops intake, drains the queue, and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded due to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
