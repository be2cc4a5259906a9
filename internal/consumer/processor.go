// Package consumer reads enrollment events back from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/events"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a record written by the outbox dispatcher.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	EventID   string
	Event     events.EnrollmentChanged
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.fetchBackoff = d
	}
}

// WithHandlerRetry sets how many times a message is handed to the Handler before
// it is given up on, and the pause between attempts.
func WithHandlerRetry(attempts int, backoff time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.handleAttempts = attempts
		}
		p.handleBackoff = backoff
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
// A failing message is retried in place because a later commit in the consumer
// group would move the offset past it.
type Processor struct {
	reader         Reader
	handler        Handler
	logger         *zap.Logger
	fetchBackoff   time.Duration
	handleAttempts int
	handleBackoff  time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		logger:         zap.NewNop(),
		fetchBackoff:   500 * time.Millisecond,
		handleAttempts: 5,
		handleBackoff:  time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Warn("fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.fetchBackoff):
			}
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn("decode failed",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(decodeErr),
			)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Warn("commit after decode failure failed", zap.Error(commitErr))
			}
			continue
		}

		if handleErr := p.handle(ctx, event); handleErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("giving up on message",
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.EventID),
				zap.Int("attempts", p.handleAttempts),
				zap.Error(handleErr),
			)
			recordAbandoned(event)
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Warn("commit after abandoning message failed", zap.Error(commitErr))
			}
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Warn("commit failed", zap.Error(commitErr))
		} else {
			recordProcessed(event)
		}
	}
}

// handle runs the handler until it succeeds, the attempts run out or ctx ends.
func (p *Processor) handle(ctx context.Context, msg Message) error {
	var err error
	for attempt := 1; attempt <= p.handleAttempts; attempt++ {
		if err = p.handler.Handle(ctx, msg); err == nil {
			return nil
		}
		recordHandlerError(msg)
		p.logger.Warn("handler failed",
			zap.String("event_type", msg.EventType),
			zap.String("event_id", msg.EventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == p.handleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.handleBackoff):
		}
	}
	return err
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) == 0 {
		return Message{}, errors.New("empty payload")
	}

	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	eventID, _ := headerValue(msg, "event_id")

	var event events.EnrollmentChanged
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}
	if event.Activity == "" || event.Participant == "" {
		return Message{}, errors.New("payload missing activity or participant")
	}
	if len(eventID) == 0 {
		eventID = []byte(event.EventID)
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		EventType: string(eventType),
		EventID:   string(eventID),
		Event:     event,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
