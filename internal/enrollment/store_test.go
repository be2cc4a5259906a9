package enrollment

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/extracurricular/internal/catalog"
	"example.com/extracurricular/internal/domain"
)

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	seed, err := catalog.Default()
	require.NoError(t, err)
	store, err := NewStore(seed)
	require.NoError(t, err)
	return store
}

func TestListReturnsFullCatalog(t *testing.T) {
	store := newSeededStore(t)

	activities := store.List()
	require.Len(t, activities, 9)
	require.Contains(t, activities, "Chess Club")
	require.Contains(t, activities, "Programming Class")
	for name, activity := range activities {
		require.Equal(t, name, activity.Name)
		require.NotEmpty(t, activity.Description)
		require.NotEmpty(t, activity.Schedule)
		require.Positive(t, activity.MaxParticipants)
		require.NotNil(t, activity.Participants)
	}
}

func TestListIsASnapshot(t *testing.T) {
	store := newSeededStore(t)

	snapshot := store.List()
	chess := snapshot["Chess Club"]
	chess.Participants[0] = "mallory@mergington.edu"
	chess.Participants = append(chess.Participants, "eve@mergington.edu")

	fresh := store.List()["Chess Club"]
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, fresh.Participants)

	_, err := store.SignUp("Chess Club", "alice@mergington.edu")
	require.NoError(t, err)
	require.Len(t, snapshot["Chess Club"].Participants, 2)
}

func TestSignUpAddsParticipant(t *testing.T) {
	store := newSeededStore(t)

	result, err := store.SignUp("Chess Club", "alice@mergington.edu")
	require.NoError(t, err)
	require.Equal(t, domain.Enrollment{
		Activity:    "Chess Club",
		Participant: "alice@mergington.edu",
		Action:      domain.ActionSignedUp,
		Changed:     true,
		RosterSize:  3,
		Capacity:    12,
	}, result)

	chess := store.List()["Chess Club"]
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu", "alice@mergington.edu"}, chess.Participants)
}

func TestWithdrawRemovesParticipant(t *testing.T) {
	store := newSeededStore(t)

	result, err := store.Withdraw("Chess Club", "michael@mergington.edu")
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, domain.ActionWithdrawn, result.Action)
	require.Equal(t, 1, result.RosterSize)

	chess := store.List()["Chess Club"]
	require.NotContains(t, chess.Participants, "michael@mergington.edu")
	require.Equal(t, []string{"daniel@mergington.edu"}, chess.Participants)
}

func TestSignUpThenWithdrawRestoresRoster(t *testing.T) {
	store := newSeededStore(t)
	before := store.List()["Chess Club"].Participants

	_, err := store.SignUp("Chess Club", "bob@mergington.edu")
	require.NoError(t, err)
	require.Contains(t, store.List()["Chess Club"].Participants, "bob@mergington.edu")

	_, err = store.Withdraw("Chess Club", "bob@mergington.edu")
	require.NoError(t, err)
	require.ElementsMatch(t, before, store.List()["Chess Club"].Participants)
}

func TestUnknownActivityIsNotFound(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.SignUp("Nonexistent Club", "alice@mergington.edu")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
	require.Equal(t, "Activity not found", err.Error())

	_, err = store.Withdraw("Nonexistent Club", "alice@mergington.edu")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
	require.Equal(t, "Activity not found", err.Error())

	_, err = store.Get("Nonexistent Club")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestDuplicateSignUpIsRejected(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.SignUp("Chess Club", "michael@mergington.edu")
	require.ErrorIs(t, err, domain.ErrAlreadySignedUp)
	require.Len(t, store.List()["Chess Club"].Participants, 2)
}

func TestSameParticipantMayJoinSeveralActivities(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.SignUp("Art Studio", "michael@mergington.edu")
	require.NoError(t, err)
	require.Contains(t, store.List()["Art Studio"].Participants, "michael@mergington.edu")
	require.Contains(t, store.List()["Chess Club"].Participants, "michael@mergington.edu")
}

func TestSignUpRejectsFullActivity(t *testing.T) {
	store, err := NewStore([]domain.Activity{{
		Name:            "Tiny Club",
		Description:     "Two seats only",
		Schedule:        "Mondays",
		MaxParticipants: 2,
		Participants:    []string{"a@mergington.edu"},
	}})
	require.NoError(t, err)

	_, err = store.SignUp("Tiny Club", "b@mergington.edu")
	require.NoError(t, err)

	_, err = store.SignUp("Tiny Club", "c@mergington.edu")
	require.ErrorIs(t, err, domain.ErrActivityFull)
	require.Equal(t, []string{"a@mergington.edu", "b@mergington.edu"}, store.List()["Tiny Club"].Participants)
}

func TestWithdrawAbsentParticipantIsNoop(t *testing.T) {
	store := newSeededStore(t)

	result, err := store.Withdraw("Chess Club", "nobody@mergington.edu")
	require.NoError(t, err)
	require.False(t, result.Changed)
	require.Equal(t, 2, result.RosterSize)
	require.Len(t, store.List()["Chess Club"].Participants, 2)
}

func TestEmptyParticipantIsRejected(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.SignUp("Chess Club", "   ")
	require.ErrorIs(t, err, domain.ErrInvalidParticipant)
	_, err = store.Withdraw("Chess Club", "")
	require.ErrorIs(t, err, domain.ErrInvalidParticipant)
}

func TestNewStoreRejectsBrokenSeed(t *testing.T) {
	valid := domain.Activity{Name: "Club", MaxParticipants: 2}

	cases := map[string][]domain.Activity{
		"empty name":     {{Name: " ", MaxParticipants: 1}},
		"zero capacity":  {{Name: "Club"}},
		"duplicate name": {valid, valid},
		"over capacity":  {{Name: "Club", MaxParticipants: 1, Participants: []string{"a", "b"}}},
		"duplicate seat": {{Name: "Club", MaxParticipants: 3, Participants: []string{"a", "a"}}},
		"blank seat":     {{Name: "Club", MaxParticipants: 3, Participants: []string{""}}},
	}
	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewStore(seed)
			require.ErrorIs(t, err, domain.ErrInvalidCatalog)
		})
	}
}

func TestNewStoreCopiesSeed(t *testing.T) {
	seed := []domain.Activity{{Name: "Club", MaxParticipants: 3, Participants: []string{"a"}}}
	store, err := NewStore(seed)
	require.NoError(t, err)

	seed[0].Participants[0] = "changed"
	require.Equal(t, []string{"a"}, store.List()["Club"].Participants)
}

func TestConcurrentSignUpsRespectCapacity(t *testing.T) {
	store, err := NewStore([]domain.Activity{{Name: "Robotics", MaxParticipants: 10}})
	require.NoError(t, err)

	const attempts = 100
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		full    int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.SignUp("Robotics", fmt.Sprintf("student%d@mergington.edu", i))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				success++
			case domain.ErrActivityFull:
				full++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 10, success)
	require.Equal(t, attempts-10, full)
	require.Len(t, store.List()["Robotics"].Participants, 10)
}

func TestConcurrentDuplicateSignUpsKeepRosterUnique(t *testing.T) {
	store := newSeededStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.SignUp("Science Club", "zoe@mergington.edu")
		}()
		go func() {
			defer wg.Done()
			_ = store.List()
		}()
	}
	wg.Wait()

	seen := make(map[string]int)
	for _, activity := range store.List() {
		for _, p := range activity.Participants {
			seen[activity.Name+"/"+p]++
		}
		require.LessOrEqual(t, len(activity.Participants), activity.MaxParticipants)
	}
	for key, count := range seen {
		require.Equal(t, 1, count, "duplicate roster entry %s", key)
	}
	require.Contains(t, store.List()["Science Club"].Participants, "zoe@mergington.edu")
}
