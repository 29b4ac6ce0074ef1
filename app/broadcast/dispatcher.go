// Package broadcast fans state-change notifications out to club topics.
// Delivery is best-effort and at-most-once: disconnected subscribers re-fetch
// current state on reconnect instead of replaying missed messages.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bmxtools/raceday/app/shared/attr"
)

// Publisher is the slice of the event bus the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// publishTimeout bounds a single delivery attempt so a wedged broker cannot
// pin the worker forever.
const publishTimeout = 5 * time.Second

type envelope struct {
	topic   string
	payload any
}

// Dispatcher delivers notifications asynchronously. Publish never blocks the
// caller: envelopes queue on a buffered channel and a single worker drains it.
// A full buffer drops the envelope with a warning.
type Dispatcher struct {
	pub    Publisher
	logger *slog.Logger

	queue chan envelope
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts the delivery worker. bufferSize <= 0 falls back to 256.
func NewDispatcher(pub Publisher, logger *slog.Logger, bufferSize int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	d := &Dispatcher{
		pub:    pub,
		logger: logger,
		queue:  make(chan envelope, bufferSize),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Publish queues payload for delivery to topic. Fire-and-forget: delivery
// failures are logged, never surfaced, and must not affect the mutation that
// triggered them. Publishing after Close drops the envelope with a warning.
func (d *Dispatcher) Publish(topic string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("Broadcast dispatcher closed, dropping notification",
			attr.String("topic", topic),
		)
		return
	}

	select {
	case d.queue <- envelope{topic: topic, payload: payload}:
	default:
		d.logger.Warn("Broadcast buffer full, dropping notification",
			attr.String("topic", topic),
		)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for env := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := d.pub.Publish(ctx, env.topic, env.payload); err != nil {
			d.logger.Warn("Broadcast delivery failed",
				attr.String("topic", env.topic),
				attr.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting notifications and drains the queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
