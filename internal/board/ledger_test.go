package board_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classreviews/internal/board"
	"classreviews/pkg/models"
)

func TestToggle_AddSwitchRetract(t *testing.T) {
	l := models.NewLedger()

	l, outcome, err := board.Toggle(l, "u1", models.ReactionHeart)
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeAdded, outcome)
	assert.Equal(t, 1, l.Counts.Get(models.ReactionHeart))

	l, outcome, err = board.Toggle(l, "u1", models.ReactionFire)
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeSwitched, outcome)
	assert.Equal(t, 0, l.Counts.Get(models.ReactionHeart))
	assert.Equal(t, 1, l.Counts.Get(models.ReactionFire))

	l, outcome, err = board.Toggle(l, "u1", models.ReactionFire)
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeRetracted, outcome)
	assert.Equal(t, models.Counts{}, l.Counts)
	assert.Empty(t, l.Choices)
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	l := models.NewLedger()
	l.Counts[models.ReactionSad] = 1
	l.Choices["u1"] = models.ReactionSad

	next, _, err := board.Toggle(l, "u2", models.ReactionSad)
	require.NoError(t, err)

	assert.Equal(t, 1, l.Counts.Get(models.ReactionSad))
	assert.Len(t, l.Choices, 1)
	assert.Equal(t, 2, next.Counts.Get(models.ReactionSad))
}

func TestToggle_RetractTwiceRestoresOriginal(t *testing.T) {
	l := models.NewLedger()
	l.Counts[models.ReactionLaugh] = 3
	l.Choices["a"] = models.ReactionLaugh
	l.Choices["b"] = models.ReactionLaugh
	l.Choices["c"] = models.ReactionLaugh

	once, _, err := board.Toggle(l, "a", models.ReactionLaugh)
	require.NoError(t, err)
	assert.Equal(t, 2, once.Counts.Get(models.ReactionLaugh))
	_, active := once.Choice("a")
	assert.False(t, active)

	twice, _, err := board.Toggle(once, "a", models.ReactionLaugh)
	require.NoError(t, err)
	assert.Equal(t, l.Counts, twice.Counts)
	assert.Equal(t, l.Choices, twice.Choices)
}

func TestToggle_ReplayedRetractionDecrementsOnce(t *testing.T) {
	l := models.NewLedger()
	l.Counts[models.ReactionSurprise] = 2
	l.Choices["a"] = models.ReactionSurprise
	l.Choices["b"] = models.ReactionSurprise

	first, outcome, err := board.Toggle(l, "a", models.ReactionSurprise)
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeRetracted, outcome)

	// the same click applied again to the same starting ledger
	second, outcome, err := board.Toggle(l, "a", models.ReactionSurprise)
	require.NoError(t, err)
	assert.Equal(t, board.OutcomeRetracted, outcome)

	for _, got := range []models.Ledger{first, second} {
		assert.Equal(t, 1, got.Counts.Get(models.ReactionSurprise))
		assert.True(t, got.Consistent())
	}
	assert.Equal(t, first, second)
	assert.Equal(t, 2, l.Counts.Get(models.ReactionSurprise))
}

func TestToggle_SwitchPreservesTotal(t *testing.T) {
	l := models.NewLedger()
	l, _, _ = board.Toggle(l, "u1", models.ReactionHeart)
	l, _, _ = board.Toggle(l, "u2", models.ReactionLaugh)
	before := board.TotalReactions(l.Counts)

	for _, k := range models.ReactionKinds() {
		if k == models.ReactionHeart {
			continue
		}
		switched, outcome, err := board.Toggle(l, "u1", k)
		require.NoError(t, err)
		assert.Equal(t, board.OutcomeSwitched, outcome)
		assert.Equal(t, before, board.TotalReactions(switched.Counts), "switch to %s", k)
	}
}

func TestToggle_ClampsCorruptCounts(t *testing.T) {
	// Choice recorded without a matching count, as left behind by a lost write.
	l := models.NewLedger()
	l.Choices["u1"] = models.ReactionFire

	next, _, err := board.Toggle(l, "u1", models.ReactionFire)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Counts.Get(models.ReactionFire))

	next, _, err = board.Toggle(l, "u1", models.ReactionHeart)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Counts.Get(models.ReactionFire))
	assert.Equal(t, 1, next.Counts.Get(models.ReactionHeart))
}

func TestToggle_RejectsBadInput(t *testing.T) {
	l := models.NewLedger()

	_, _, err := board.Toggle(l, "u1", models.ReactionKind(9))
	require.ErrorIs(t, err, board.ErrUnknownReaction)
	assert.True(t, board.IsValidation(err))

	_, _, err = board.Toggle(l, "", models.ReactionHeart)
	require.ErrorIs(t, err, board.ErrMissingUser)
}

func TestToggle_RandomSequencesKeepLedgerConsistent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	kinds := models.ReactionKinds()
	users := make([]string, 8)
	for i := range users {
		users[i] = fmt.Sprintf("user-%d", i)
	}

	l := models.NewLedger()
	for step := 0; step < 2000; step++ {
		user := users[rng.IntN(len(users))]
		kind := kinds[rng.IntN(len(kinds))]

		next, _, err := board.Toggle(l, user, kind)
		require.NoError(t, err)
		require.True(t, next.Consistent(), "step %d: %+v", step, next)
		for _, n := range next.Counts {
			require.GreaterOrEqual(t, n, 0)
		}
		l = next
	}
}
