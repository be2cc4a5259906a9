// Package domain defines the enrollment model and the workflows around it.
package domain

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"example.com/extracurricular/internal/observability"
	"example.com/extracurricular/internal/observability/logger"
)

// EnrollmentStore owns the activity catalog and its rosters.
type EnrollmentStore interface {
	List() map[string]Activity
	SignUp(activity, participant string) (Enrollment, error)
	Withdraw(activity, participant string) (Enrollment, error)
}

// EventPublisher forwards roster changes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, change Enrollment) error
}

// Service orchestrates enrollment workflows.
type Service struct {
	store     EnrollmentStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewService constructs a Service. A nil logger disables logging.
func NewService(store EnrollmentStore, publisher EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, publisher: publisher, logger: logger}
	for name, activity := range store.List() {
		observability.RecordRoster(name, len(activity.Participants), activity.MaxParticipants)
	}
	return s
}

// ListActivities returns a snapshot of the catalog keyed by activity name.
func (s *Service) ListActivities(ctx context.Context) map[string]Activity {
	return s.store.List()
}

// SignUp enrolls participant in the named activity.
func (s *Service) SignUp(ctx context.Context, activity, participant string) (Enrollment, error) {
	result, err := s.store.SignUp(activity, participant)
	s.complete(ctx, "signup", activity, participant, result, err)
	return result, err
}

// Unregister removes participant from the named activity. Removing someone who is
// not enrolled succeeds without changing the roster.
func (s *Service) Unregister(ctx context.Context, activity, participant string) (Enrollment, error) {
	result, err := s.store.Withdraw(activity, participant)
	s.complete(ctx, "unregister", activity, participant, result, err)
	return result, err
}

func (s *Service) complete(ctx context.Context, operation, activity, participant string, result Enrollment, err error) {
	outcome := Outcome(result, err)
	observability.RecordOperation(operation, outcome)
	log := logger.From(ctx, s.logger)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("activity", activity),
		zap.String("participant", participant),
		zap.String("outcome", outcome),
	}
	if err != nil {
		log.Info("enrollment rejected", append(fields, zap.Error(err))...)
		return
	}

	observability.RecordRoster(result.Activity, result.RosterSize, result.Capacity)
	if !result.Changed {
		log.Debug("enrollment unchanged", fields...)
		return
	}
	log.Info("enrollment changed", append(fields, zap.Int("roster_size", result.RosterSize))...)

	if s.publisher == nil {
		return
	}
	if pubErr := s.publisher.Publish(ctx, result); pubErr != nil {
		observability.RecordPublishFailure()
		log.Warn("enrollment notification not queued", append(fields, zap.Error(pubErr))...)
	}
}

// Outcome classifies an operation result for metrics and logs.
func Outcome(result Enrollment, err error) string {
	switch {
	case err == nil && result.Changed:
		return "ok"
	case err == nil:
		return "noop"
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadySignedUp):
		return "already_signed_up"
	case errors.Is(err, ErrActivityFull):
		return "full"
	case errors.Is(err, ErrInvalidParticipant):
		return "invalid"
	default:
		return "error"
	}
}
