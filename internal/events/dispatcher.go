package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Dispatcher hands events to a sink from a single worker so they keep the
// order rooms emitted them in. Enqueue never blocks: when the queue is full
// the event is dropped and logged.
type Dispatcher struct {
	sink  Sink
	queue chan Event
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(sink Sink, size int, log *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan Event, size),
		log:   log.Named("events"),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) Enqueue(evs ...Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	for _, ev := range evs {
		select {
		case d.queue <- ev:
		default:
			d.log.Warn("event queue full, dropping event",
				zap.String("room", ev.RoomID),
				zap.String("type", string(ev.Type)),
			)
		}
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := d.sink.Publish(ctx, ev); err != nil {
			d.log.Warn("publish event",
				zap.Error(err),
				zap.String("room", ev.RoomID),
				zap.String("type", string(ev.Type)),
			)
		}
		cancel()
	}
}

// Close drains queued events and closes the sink. Later Enqueue calls are ignored.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
	return d.sink.Close()
}
