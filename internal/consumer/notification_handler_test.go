package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"example.com/extracurricular/internal/events"
)

type recordingSender struct {
	notices []Notice
	err     error
}

func (s *recordingSender) Send(_ context.Context, notice Notice) error {
	if s.err != nil {
		return s.err
	}
	s.notices = append(s.notices, notice)
	return nil
}

func changeMessage(eventType string) Message {
	return Message{
		Topic:     "enrollment_events",
		EventType: eventType,
		EventID:   "evt-7",
		Event: events.EnrollmentChanged{
			EventID:     "evt-7",
			Activity:    "Chess Club",
			Participant: "alice@mergington.edu",
			RosterSize:  3,
			Capacity:    12,
		},
	}
}

func TestNotificationHandlerSignedUp(t *testing.T) {
	sender := &recordingSender{}
	h := NewNotificationHandler(sender, nil)
	before := testutil.ToFloat64(noticeCounter.WithLabelValues(events.TypeSignedUp))

	require.NoError(t, h.Handle(context.Background(), changeMessage(events.TypeSignedUp)))

	require.Len(t, sender.notices, 1)
	notice := sender.notices[0]
	require.Equal(t, "alice@mergington.edu", notice.Recipient)
	require.Equal(t, "evt-7", notice.EventID)
	require.Contains(t, notice.Body, "Signed up alice@mergington.edu for Chess Club")
	require.Contains(t, notice.Body, "3 of 12")
	require.Equal(t, before+1, testutil.ToFloat64(noticeCounter.WithLabelValues(events.TypeSignedUp)))
}

func TestNotificationHandlerWithdrawn(t *testing.T) {
	sender := &recordingSender{}
	h := NewNotificationHandler(sender, nil)

	require.NoError(t, h.Handle(context.Background(), changeMessage(events.TypeWithdrawn)))

	require.Len(t, sender.notices, 1)
	require.Equal(t, "Removed from Chess Club", sender.notices[0].Subject)
	require.Contains(t, sender.notices[0].Body, "Removed alice@mergington.edu from Chess Club")
}

func TestNotificationHandlerIgnoresUnknownEvents(t *testing.T) {
	sender := &recordingSender{}
	h := NewNotificationHandler(sender, nil)

	require.NoError(t, h.Handle(context.Background(), changeMessage("enrollment.audited")))
	require.Empty(t, sender.notices)
}

func TestNotificationHandlerSendFailure(t *testing.T) {
	h := NewNotificationHandler(&recordingSender{err: errors.New("smtp down")}, nil)

	err := h.Handle(context.Background(), changeMessage(events.TypeSignedUp))
	require.ErrorContains(t, err, "smtp down")
}

func TestLogSenderWritesNotice(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewNotificationHandler(nil, zap.New(core))

	require.NoError(t, h.Handle(context.Background(), changeMessage(events.TypeSignedUp)))

	entries := logs.FilterMessage("participant notice").All()
	require.Len(t, entries, 1)
	require.Equal(t, "alice@mergington.edu", entries[0].ContextMap()["recipient"])
}
