package domain

import "errors"

var (
	// ErrActivityNotFound is returned when the activity name is not in the catalog.
	ErrActivityNotFound = errors.New("Activity not found")
	// ErrAlreadySignedUp is returned when the participant is already on the roster.
	ErrAlreadySignedUp = errors.New("Student is already signed up")
	// ErrActivityFull is returned when the roster has reached capacity.
	ErrActivityFull = errors.New("Activity is full")
	// ErrInvalidParticipant is returned for an empty participant identity.
	ErrInvalidParticipant = errors.New("email is required")
	// ErrInvalidCatalog is returned when seed data breaks a roster invariant.
	ErrInvalidCatalog = errors.New("invalid activity catalog")
)
