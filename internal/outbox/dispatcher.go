package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// DispatcherConfig holds the delivery tunables.
type DispatcherConfig struct {
	Topic        string
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// DrainTimeout bounds the final flush after the context is cancelled.
	DrainTimeout time.Duration
}

// Dispatcher drains the queue and delivers events to Kafka.
type Dispatcher struct {
	queue            *Queue
	producer         messageWriter
	cfg              DispatcherConfig
	logger           *zap.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(queue *Queue, producer messageWriter, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:            queue,
		producer:         producer,
		cfg:              cfg,
		logger:           logger,
		shutdownComplete: make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled, then flushes what is left.
// It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer func() {
		ticker.Stop()
		d.flush()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("outbox delivery failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout)
	defer cancel()

	for d.queue.Len() > 0 {
		if err := d.processBatch(ctx); err != nil {
			left := d.queue.Drain(0)
			droppedCounter.WithLabelValues("shutdown").Add(float64(len(left)))
			d.logger.Warn("outbox flush abandoned", zap.Int("dropped", len(left)), zap.Error(err))
			return
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	messages := d.queue.Drain(d.cfg.BatchSize)
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if err := d.deliver(ctx, messages); err != nil {
		failedBatchCounter.Inc()
		d.retry(messages)
		return err
	}
	deliveredCounter.Add(float64(len(messages)))
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, messages []Message) error {
	records := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		records = append(records, kafka.Message{
			Key:   []byte(msg.Key),
			Value: msg.Payload,
			Time:  msg.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(msg.EventType)},
				{Key: "event_id", Value: []byte(msg.EventID)},
			},
		})
	}
	return d.producer.WriteMessages(ctx, d.cfg.Topic, records...)
}

func (d *Dispatcher) retry(messages []Message) {
	retry := make([]Message, 0, len(messages))
	for _, msg := range messages {
		msg.Attempts++
		if msg.Attempts >= d.cfg.MaxAttempts {
			droppedCounter.WithLabelValues("max_attempts").Inc()
			d.logger.Error("outbox event dropped after retries",
				zap.String("event_id", msg.EventID),
				zap.String("event_type", msg.EventType),
				zap.Int("attempts", msg.Attempts))
			continue
		}
		retry = append(retry, msg)
	}
	if overflow := d.queue.Requeue(retry); len(overflow) > 0 {
		droppedCounter.WithLabelValues("queue_full").Add(float64(len(overflow)))
		d.logger.Warn("outbox retry overflowed queue", zap.Int("dropped", len(overflow)))
	}
}
