// Package outbox buffers roster change notifications and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/events"
)

var (
	// ErrQueueFull is returned when the buffer has no room for another notification.
	ErrQueueFull = errors.New("outbox queue is full")
	// ErrUnknownAction is returned for a roster change with no event type.
	ErrUnknownAction = errors.New("unknown enrollment action")
)

// Message is a notification waiting for delivery.
type Message struct {
	EventID   string
	EventType string
	Key       string
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// Queue is a bounded FIFO of pending notifications. It implements domain.EventPublisher.
type Queue struct {
	mu       sync.Mutex
	pending  []Message
	capacity int
	now      func() time.Time
}

// NewQueue constructs a Queue holding at most capacity messages.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{capacity: capacity, now: func() time.Time { return time.Now().UTC() }}
}

// Publish converts a roster change into a pending message.
func (q *Queue) Publish(ctx context.Context, change domain.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eventType, ok := events.TypeForAction(change.Action)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, change.Action)
	}

	occurredAt := q.now()
	evt := events.EnrollmentChanged{
		EventID:     uuid.NewString(),
		Activity:    change.Activity,
		Participant: change.Participant,
		Action:      string(change.Action),
		RosterSize:  change.RosterSize,
		Capacity:    change.Capacity,
		OccurredAt:  occurredAt,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= q.capacity {
		return ErrQueueFull
	}
	q.pending = append(q.pending, Message{
		EventID:   evt.EventID,
		EventType: eventType,
		Key:       change.Activity,
		Payload:   body,
		CreatedAt: occurredAt,
	})
	queueDepthGauge.Set(float64(len(q.pending)))
	return nil
}

// Drain removes and returns up to max messages in arrival order.
func (q *Queue) Drain(max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if max > 0 && n > max {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]Message, n)
	copy(out, q.pending[:n])
	q.pending = append(q.pending[:0], q.pending[n:]...)
	queueDepthGauge.Set(float64(len(q.pending)))
	return out
}

// Requeue puts messages back at the head of the queue so ordering survives a retry.
// Messages that no longer fit are returned to the caller.
func (q *Queue) Requeue(msgs []Message) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	room := q.capacity - len(q.pending)
	if room < 0 {
		room = 0
	}
	if room > len(msgs) {
		room = len(msgs)
	}
	head := make([]Message, 0, room+len(q.pending))
	head = append(head, msgs[:room]...)
	q.pending = append(head, q.pending...)
	queueDepthGauge.Set(float64(len(q.pending)))
	return msgs[room:]
}

// Len reports how many messages are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// NoopPublisher discards notifications. Used when no brokers are configured.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, domain.Enrollment) error { return nil }
