package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/autonova/project-service/internal/store"
)

// Dispatcher defaults.
const (
	DefaultInterval  = 2 * time.Second
	DefaultBatchSize = 25
)

var (
	dispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "projectd_outbox_dispatched_total",
			Help: "Total number of outbox messages published.",
		},
		[]string{"topic"},
	)

	dispatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "projectd_outbox_dispatch_failures_total",
			Help: "Total number of outbox publish failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchedTotal)
	prometheus.MustRegister(dispatchFailures)
}

// Publisher forwards a serialized event to the downstream broker. Delivery is
// at-least-once: a message whose publish succeeded but whose dispatched stamp
// failed to commit will be published again.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LogPublisher writes events to the structured log. It stands in for a real
// broker in development and tests.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.Logger.Info("event published", "topic", topic, "payload", string(payload))
	return nil
}

// Dispatcher drains pending outbox messages on an interval and hands them to
// the publisher in insertion order.
type Dispatcher struct {
	store     store.Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Zero interval or batchSize fall back to
// the defaults.
func NewDispatcher(s store.Store, p Publisher, logger *slog.Logger, interval time.Duration, batchSize int) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		store:     s,
		publisher: p,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run starts the drain loop in a goroutine and returns. The loop stops when
// ctx is cancelled; call Wait to block until it has exited.
func (d *Dispatcher) Run(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.DrainOnce(ctx); err != nil && ctx.Err() == nil {
					d.logger.Error("outbox drain", "error", err)
				}
			}
		}
	}()
}

// Wait blocks until the drain loop has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// DrainOnce claims one batch of pending messages, publishes them in order and
// marks the published ones dispatched. A publish failure stops the batch;
// the failed message and everything after it stay pending for the next tick,
// preserving order.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	messages, err := d.store.PendingOutbox(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	var published []string
	for _, m := range messages {
		if err := d.publisher.Publish(ctx, m.Topic, m.Payload); err != nil {
			dispatchFailures.Inc()
			d.logger.Error("publish outbox message", "message_id", m.ID, "topic", m.Topic, "error", err)
			break
		}
		dispatchedTotal.WithLabelValues(m.Topic).Inc()
		published = append(published, m.ID)
	}

	if len(published) == 0 {
		return nil
	}
	return d.store.MarkDispatched(ctx, published)
}
