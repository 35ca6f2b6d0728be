package board

import "classreviews/pkg/models"

// Outcome tells what a toggle did to the user's reaction.
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeSwitched  Outcome = "switched"
	OutcomeRetracted Outcome = "retracted"
)

// Toggle applies one reaction click by userID and returns the updated
// ledger. l itself is left untouched.
//
// Clicking the active reaction retracts it, clicking another kind moves the
// user's single vote there.
func Toggle(l models.Ledger, userID string, kind models.ReactionKind) (models.Ledger, Outcome, error) {
	if userID == "" {
		return l, "", Invalid("user_id", ErrMissingUser)
	}
	if !kind.Valid() {
		return l, "", Invalid("kind", ErrUnknownReaction)
	}

	next := l.Clone()
	current, had := next.Choices[userID]

	if had && current == kind {
		next.Counts[kind] = decrement(next.Counts[kind])
		delete(next.Choices, userID)
		return next, OutcomeRetracted, nil
	}

	outcome := OutcomeAdded
	if had {
		next.Counts[current] = decrement(next.Counts[current])
		outcome = OutcomeSwitched
	}
	next.Counts[kind]++
	next.Choices[userID] = kind
	return next, outcome, nil
}

func decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
