package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
	"github.com/blogify/blog-api/internal/pkg/metrics"
)

const channelBuffer = 256

// Broadcaster receives events drained from the dispatcher.
type Broadcaster interface {
	Broadcast(event domain.PostEvent)
}

// Dispatcher decouples request handlers from observer fan-out. Publish never
// blocks: when the buffer is full the event is dropped.
type Dispatcher struct {
	events chan domain.PostEvent
	target Broadcaster
	log    zerolog.Logger

	wg sync.WaitGroup
}

var _ ports.ChangeNotifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with the given buffer size.
// If buffer <= 0, channelBuffer is used.
func NewDispatcher(buffer int, target Broadcaster, log zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = channelBuffer
	}
	return &Dispatcher{
		events: make(chan domain.PostEvent, buffer),
		target: target,
		log:    log,
	}
}

// Start launches the drain goroutine. It stops when ctx is cancelled; events
// still buffered at that point are discarded.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

// Wait blocks until the drain goroutine has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish enqueues event for broadcast.
func (d *Dispatcher) Publish(event domain.PostEvent) {
	select {
	case d.events <- event:
	default:
		metrics.NotifierDroppedTotal.WithLabelValues("dispatch").Inc()
		d.log.Debug().
			Str("kind", string(event.Kind)).
			Str("post_id", event.PostID).
			Msg("change event dropped, dispatcher full")
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.target.Broadcast(event)
		}
	}
}
