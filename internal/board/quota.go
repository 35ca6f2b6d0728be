package board

import "classreviews/pkg/models"

const DefaultReactionCap = 5

// ReactionPolicy caps the number of distinct reviews a single user may
// hold an active reaction on. The cap is global across the board.
type ReactionPolicy struct {
	Cap int
}

func (p ReactionPolicy) cap() int {
	if p.Cap <= 0 {
		return DefaultReactionCap
	}
	return p.Cap
}

// ActiveReactions counts the reviews on which userID currently has a reaction.
func ActiveReactions(reviews []models.Review, userID string) int {
	n := 0
	for _, r := range reviews {
		if _, ok := r.Reactions.Choices[userID]; ok {
			n++
		}
	}
	return n
}

// React toggles kind for userID on the review with reviewID and returns the
// updated copy of that review. reviews is not modified.
func (p ReactionPolicy) React(reviews []models.Review, reviewID, userID string, kind models.ReactionKind) (models.Review, Outcome, error) {
	if userID == "" {
		return models.Review{}, "", Invalid("user_id", ErrMissingUser)
	}
	if !kind.Valid() {
		return models.Review{}, "", Invalid("kind", ErrUnknownReaction)
	}

	idx := indexOf(reviews, reviewID)
	if idx < 0 {
		return models.Review{}, "", ErrInvalidReference
	}
	target := reviews[idx]

	if _, already := target.Reactions.Choices[userID]; !already {
		if ActiveReactions(reviews, userID) >= p.cap() {
			return models.Review{}, "", ErrQuotaExceeded
		}
	}

	ledger, outcome, err := Toggle(target.Reactions, userID, kind)
	if err != nil {
		return models.Review{}, "", err
	}

	updated := target.Clone()
	updated.Reactions = ledger
	return updated, outcome, nil
}

func indexOf(reviews []models.Review, id string) int {
	if id == "" {
		return -1
	}
	for i := range reviews {
		if reviews[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the review with id, or ErrInvalidReference.
func Find(reviews []models.Review, id string) (models.Review, error) {
	idx := indexOf(reviews, id)
	if idx < 0 {
		return models.Review{}, ErrInvalidReference
	}
	return reviews[idx], nil
}
