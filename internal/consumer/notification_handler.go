package consumer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"example.com/extracurricular/internal/events"
)

// Notice is the participant-facing text derived from one roster change.
type Notice struct {
	EventID   string
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers a notice to its recipient.
type Sender interface {
	Send(ctx context.Context, notice Notice) error
}

// LogSender writes notices to the log instead of delivering them.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the notice.
func (s LogSender) Send(_ context.Context, notice Notice) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("participant notice",
		zap.String("event_id", notice.EventID),
		zap.String("recipient", notice.Recipient),
		zap.String("subject", notice.Subject),
		zap.String("body", notice.Body),
	)
	return nil
}

// NotificationHandler turns enrollment events into participant notices.
type NotificationHandler struct {
	sender Sender
	logger *zap.Logger
}

// NewNotificationHandler builds a handler that sends notices through sender.
func NewNotificationHandler(sender Sender, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	return &NotificationHandler{sender: sender, logger: logger}
}

// Handle implements Handler. Unknown event types are acknowledged and skipped.
func (h *NotificationHandler) Handle(ctx context.Context, msg Message) error {
	notice, ok := noticeFor(msg)
	if !ok {
		h.logger.Debug("ignoring event", zap.String("event_type", msg.EventType), zap.String("event_id", msg.EventID))
		return nil
	}
	if err := h.sender.Send(ctx, notice); err != nil {
		return fmt.Errorf("send notice %s: %w", notice.EventID, err)
	}
	noticeCounter.WithLabelValues(msg.EventType).Inc()
	return nil
}

func noticeFor(msg Message) (Notice, bool) {
	e := msg.Event
	notice := Notice{EventID: msg.EventID, Recipient: e.Participant}
	switch msg.EventType {
	case events.TypeSignedUp:
		notice.Subject = fmt.Sprintf("Signed up for %s", e.Activity)
		notice.Body = fmt.Sprintf("Signed up %s for %s. %d of %d places are now taken.",
			e.Participant, e.Activity, e.RosterSize, e.Capacity)
	case events.TypeWithdrawn:
		notice.Subject = fmt.Sprintf("Removed from %s", e.Activity)
		notice.Body = fmt.Sprintf("Removed %s from %s.", e.Participant, e.Activity)
	default:
		return Notice{}, false
	}
	return notice, true
}
