package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	mu     sync.Mutex
	err    error
	calls  int
	topic  string
	writes []kafka.Message
}

func (w *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.topic = topic
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, msgs...)
	return nil
}

func TestDispatcherDeliversBatch(t *testing.T) {
	q := NewQueue(10)
	require.NoError(t, q.Publish(context.Background(), signedUp("alice@mergington.edu")))
	require.NoError(t, q.Publish(context.Background(), signedUp("bob@mergington.edu")))

	writer := &stubWriter{}
	d := NewDispatcher(q, writer, DispatcherConfig{Topic: "enrollment_events", BatchSize: 10}, nil)

	before := testutil.ToFloat64(deliveredCounter)
	require.NoError(t, d.processBatch(context.Background()))
	require.Equal(t, before+2, testutil.ToFloat64(deliveredCounter))

	require.Equal(t, "enrollment_events", writer.topic)
	require.Len(t, writer.writes, 2)
	require.Equal(t, []byte("Chess Club"), writer.writes[0].Key)
	require.Equal(t, "event_type", writer.writes[0].Headers[0].Key)
	require.Equal(t, []byte("enrollment.signed_up"), writer.writes[0].Headers[0].Value)
	require.Zero(t, q.Len())
}

func TestDispatcherRequeuesThenDrops(t *testing.T) {
	q := NewQueue(10)
	require.NoError(t, q.Publish(context.Background(), signedUp("alice@mergington.edu")))

	writer := &stubWriter{err: errors.New("broker unavailable")}
	d := NewDispatcher(q, writer, DispatcherConfig{Topic: "enrollment_events", MaxAttempts: 2}, nil)

	beforeDropped := testutil.ToFloat64(droppedCounter.WithLabelValues("max_attempts"))

	require.Error(t, d.processBatch(context.Background()))
	require.Equal(t, 1, q.Len(), "first failure keeps the event queued")

	require.Error(t, d.processBatch(context.Background()))
	require.Zero(t, q.Len(), "event dropped once attempts are exhausted")
	require.Equal(t, beforeDropped+1, testutil.ToFloat64(droppedCounter.WithLabelValues("max_attempts")))
	require.Equal(t, 2, writer.calls)
}

func TestDispatcherFlushesOnShutdown(t *testing.T) {
	q := NewQueue(10)
	writer := &stubWriter{}
	d := NewDispatcher(q, writer, DispatcherConfig{
		Topic:        "enrollment_events",
		PollInterval: time.Hour,
		BatchSize:    1,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(context.Background(), signedUp(p)))
	}
	cancel()
	d.Wait()
	<-done

	require.Zero(t, q.Len())
	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.writes, 3)
}

func TestDispatcherFlushGivesUpOnError(t *testing.T) {
	q := NewQueue(10)
	require.NoError(t, q.Publish(context.Background(), signedUp("a")))
	d := NewDispatcher(q, &stubWriter{err: errors.New("down")}, DispatcherConfig{Topic: "t"}, nil)

	before := testutil.ToFloat64(droppedCounter.WithLabelValues("shutdown"))
	d.flush()
	require.Zero(t, q.Len())
	require.Equal(t, before+1, testutil.ToFloat64(droppedCounter.WithLabelValues("shutdown")))
}
