package board

import (
	"cmp"
	"slices"
	"strings"

	"classreviews/pkg/models"
)

// FilterAll keeps every category.
const FilterAll = "All"

type SortMode string

const (
	SortRecent  SortMode = "Recent"
	SortPopular SortMode = "Popular"
)

// ParseSortMode accepts the mode names case-insensitively; empty means Recent.
func ParseSortMode(s string) (SortMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return SortRecent, true
	case "popular":
		return SortPopular, true
	default:
		return "", false
	}
}

// DeriveView filters reviews by category and orders them by sort. The input
// slice is not reordered. Both orderings are stable, so equal keys keep
// their input order.
func DeriveView(reviews []models.Review, filter string, sort SortMode) []models.Review {
	out := make([]models.Review, 0, len(reviews))
	for _, r := range reviews {
		if filter == FilterAll || string(r.Category) == filter {
			out = append(out, r)
		}
	}

	switch sort {
	case SortPopular:
		slices.SortStableFunc(out, func(a, b models.Review) int {
			if c := cmp.Compare(TotalReactions(b.Reactions.Counts), TotalReactions(a.Reactions.Counts)); c != 0 {
				return c
			}
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	default:
		slices.SortStableFunc(out, func(a, b models.Review) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
	return out
}

// Card is a review decorated with its aggregates, as rendered on the board.
type Card struct {
	models.Review
	TotalReactions int                  `json:"total_reactions"`
	TopReaction    *models.ReactionKind `json:"top_reaction,omitempty"`
}

func NewCard(r models.Review) Card {
	c := Card{Review: r, TotalReactions: TotalReactions(r.Reactions.Counts)}
	if top, ok := TopReaction(r.Reactions.Counts); ok {
		c.TopReaction = &top
	}
	return c
}

func Cards(reviews []models.Review) []Card {
	out := make([]Card, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, NewCard(r))
	}
	return out
}
