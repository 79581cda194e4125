package events

import (
	"context"
	"log/slog"
	"time"
)

// Event outcomes reported to an Observer.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Observer is told what happened to each event.
type Observer interface {
	EventOutcome(outcome string)
}

// Dispatcher hands events to a Publisher from a single background goroutine
// so that submitters never wait on the broker.
type Dispatcher struct {
	pub      Publisher
	queue    chan Classified
	observer Observer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher with a queue of size events.
// If size is <= 0, it defaults to 64. observer may be nil.
func NewDispatcher(pub Publisher, size int, observer Observer) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		pub:      pub,
		queue:    make(chan Classified, size),
		observer: observer,
		timeout:  2 * time.Second,
		logger:   slog.Default(),
	}
}

// Notify queues e without blocking. When the queue is full the event is
// dropped and false is returned.
func (d *Dispatcher) Notify(e Classified) bool {
	select {
	case d.queue <- e:
		return true
	default:
		d.logger.Warn("event queue full, dropping event",
			"questionnaire_id", e.QuestionnaireID,
			"project_id", e.ProjectID,
		)
		d.observe(OutcomeDropped)
		return false
	}
}

// Run publishes queued events until ctx is cancelled, then flushes whatever
// is still queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case e := <-d.queue:
			d.publish(context.Background(), e)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.publish(context.Background(), e)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(parent context.Context, e Classified) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	if err := d.pub.Publish(ctx, e); err != nil {
		d.logger.Error("publishing event failed",
			"questionnaire_id", e.QuestionnaireID,
			"error", err,
		)
		d.observe(OutcomeFailed)
		return
	}
	d.observe(OutcomePublished)
}

func (d *Dispatcher) observe(outcome string) {
	if d.observer != nil {
		d.observer.EventOutcome(outcome)
	}
}
