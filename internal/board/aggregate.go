package board

import "classreviews/pkg/models"

func TotalReactions(c models.Counts) int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// TopReaction returns the kind with the highest count, preferring the
// earliest kind in enumeration order on ties. ok is false when no reaction
// has a positive count.
func TopReaction(c models.Counts) (kind models.ReactionKind, ok bool) {
	best := 0
	for _, k := range models.ReactionKinds() {
		if c[k] > best {
			best = c[k]
			kind = k
			ok = true
		}
	}
	return kind, ok
}
