package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/internal/observability/metrics"
	"github.com/smallbiznis/planbilling/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

type envelope struct {
	msg           domain.Message
	correlationID string
}

// Dispatcher fans messages out to sinks from a bounded queue. A full queue
// drops the message; a sink failure is logged and not retried.
type Dispatcher struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
	sinks   []domain.Sink
	cfg     DispatcherConfig

	mu     sync.RWMutex
	closed bool
	queue  chan envelope
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, log *zap.Logger, m *metrics.Metrics, clk clock.Clock, sinks ...domain.Sink) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		log:     log.Named("notification.dispatcher"),
		metrics: m,
		clock:   clk,
		sinks:   sinks,
		cfg:     cfg,
		queue:   make(chan envelope, cfg.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.log.Info("notification dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Int("queue_size", d.cfg.QueueSize),
		zap.Int("sinks", len(d.sinks)),
	)
}

// Stop closes the queue and waits for queued messages to drain or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Notify(ctx context.Context, memberID int64, t domain.Type, title, content string) bool {
	env := envelope{
		msg: domain.Message{
			ID:        ulid.Make().String(),
			MemberID:  memberID,
			Type:      t,
			Title:     strings.TrimSpace(title),
			Content:   strings.TrimSpace(content),
			CreatedAt: d.clock.Now(),
		},
		correlationID: correlation.ExtractCorrelationID(ctx),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, env.msg, "dispatcher_stopped")
		return false
	}
	select {
	case d.queue <- env:
		return true
	default:
		d.drop(ctx, env.msg, "queue_full")
		return false
	}
}

func (d *Dispatcher) drop(ctx context.Context, msg domain.Message, reason string) {
	d.metrics.RecordNotification(ctx, "queue", OutcomeDropped)
	d.log.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("notification_id", msg.ID),
		zap.Int64("member_id", msg.MemberID),
		zap.String("type", string(msg.Type)),
	)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for env := range d.queue {
		ctx := correlation.ContextWithCorrelationID(context.Background(), env.correlationID)
		d.deliver(ctx, env.msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg domain.Message) {
	for _, sink := range d.sinks {
		if !sink.Accepts(msg.Type) {
			continue
		}
		sinkCtx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
		err := sink.Deliver(sinkCtx, msg)
		cancel()
		if err != nil {
			d.metrics.RecordNotification(ctx, sink.Name(), OutcomeFailed)
			d.log.Warn("notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("notification_id", msg.ID),
				zap.Int64("member_id", msg.MemberID),
				zap.String("correlation_id", correlation.ExtractCorrelationID(ctx)),
				zap.Error(err),
			)
			continue
		}
		d.metrics.RecordNotification(ctx, sink.Name(), OutcomeDelivered)
	}
}
