// Package enrollment holds the in-memory registry of activities and their rosters.
package enrollment

import (
	"fmt"
	"strings"
	"sync"

	"example.com/extracurricular/internal/domain"
)

// Store keeps the activity catalog in memory. One lock guards the whole map; every
// mutation holds it for the full check-then-update sequence.
type Store struct {
	mu         sync.RWMutex
	activities map[string]*domain.Activity
}

// NewStore validates the seed catalog and builds a Store from it.
func NewStore(seed []domain.Activity) (*Store, error) {
	s := &Store{activities: make(map[string]*domain.Activity, len(seed))}
	for _, activity := range seed {
		if err := validateSeed(activity); err != nil {
			return nil, err
		}
		if _, exists := s.activities[activity.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate activity %q", domain.ErrInvalidCatalog, activity.Name)
		}
		stored := activity.Clone()
		s.activities[activity.Name] = &stored
	}
	return s, nil
}

func validateSeed(activity domain.Activity) error {
	if strings.TrimSpace(activity.Name) == "" {
		return fmt.Errorf("%w: activity name is required", domain.ErrInvalidCatalog)
	}
	if activity.MaxParticipants <= 0 {
		return fmt.Errorf("%w: %q must allow at least one participant", domain.ErrInvalidCatalog, activity.Name)
	}
	if len(activity.Participants) > activity.MaxParticipants {
		return fmt.Errorf("%w: %q seeds %d participants over capacity %d",
			domain.ErrInvalidCatalog, activity.Name, len(activity.Participants), activity.MaxParticipants)
	}
	seen := make(map[string]struct{}, len(activity.Participants))
	for _, p := range activity.Participants {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: %q seeds an empty participant", domain.ErrInvalidCatalog, activity.Name)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %q seeds %s twice", domain.ErrInvalidCatalog, activity.Name, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// List returns a deep copy of every activity keyed by name.
func (s *Store) List() map[string]domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Activity, len(s.activities))
	for name, activity := range s.activities {
		out[name] = activity.Clone()
	}
	return out
}

// Get returns a copy of one activity.
func (s *Store) Get(name string) (domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return activity.Clone(), nil
}

// SignUp appends participant to the roster of the named activity.
func (s *Store) SignUp(name, participant string) (domain.Enrollment, error) {
	if strings.TrimSpace(participant) == "" {
		return domain.Enrollment{}, domain.ErrInvalidParticipant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Enrollment{}, domain.ErrActivityNotFound
	}
	if activity.Has(participant) {
		return domain.Enrollment{}, domain.ErrAlreadySignedUp
	}
	if activity.IsFull() {
		return domain.Enrollment{}, domain.ErrActivityFull
	}

	activity.Participants = append(activity.Participants, participant)
	return enrollmentFor(activity, participant, domain.ActionSignedUp, true), nil
}

// Withdraw removes participant from the roster of the named activity. Withdrawing
// someone who is not enrolled is a successful no-op.
func (s *Store) Withdraw(name, participant string) (domain.Enrollment, error) {
	if strings.TrimSpace(participant) == "" {
		return domain.Enrollment{}, domain.ErrInvalidParticipant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Enrollment{}, domain.ErrActivityNotFound
	}

	kept := activity.Participants[:0]
	removed := false
	for _, p := range activity.Participants {
		if p == participant {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	activity.Participants = kept
	return enrollmentFor(activity, participant, domain.ActionWithdrawn, removed), nil
}

func enrollmentFor(activity *domain.Activity, participant string, action domain.Action, changed bool) domain.Enrollment {
	return domain.Enrollment{
		Activity:    activity.Name,
		Participant: participant,
		Action:      action,
		Changed:     changed,
		RosterSize:  len(activity.Participants),
		Capacity:    activity.MaxParticipants,
	}
}
