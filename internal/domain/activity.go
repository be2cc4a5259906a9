package domain

// Activity is one extracurricular offering and its current roster.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// Clone returns a copy that shares no backing array with the receiver.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = make([]string, len(a.Participants))
	copy(out.Participants, a.Participants)
	return out
}

// IsFull reports whether the roster has reached capacity.
func (a Activity) IsFull() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// Has reports whether participant is on the roster.
func (a Activity) Has(participant string) bool {
	return indexOf(a.Participants, participant) >= 0
}

func indexOf(participants []string, participant string) int {
	for i, p := range participants {
		if p == participant {
			return i
		}
	}
	return -1
}

// Action names a roster transition.
type Action string

const (
	ActionSignedUp  Action = "signed_up"
	ActionWithdrawn Action = "withdrawn"
)

// Enrollment confirms the outcome of a sign-up or withdrawal.
type Enrollment struct {
	Activity    string
	Participant string
	Action      Action
	// Changed is false when the operation left the roster as it was.
	Changed    bool
	RosterSize int
	Capacity   int
}
