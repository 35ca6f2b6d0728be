package board_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"classreviews/internal/board"
	"classreviews/pkg/models"
)

func reviewWith(id string, category models.Category, at time.Time, hearts int) models.Review {
	l := models.NewLedger()
	l.Counts[models.ReactionHeart] = hearts
	return models.Review{ID: id, Category: category, CreatedAt: at, Reactions: l}
}

func ids(reviews []models.Review) []string {
	out := make([]string, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.ID)
	}
	return out
}

func TestDeriveView(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	a := reviewWith("A", models.CategoryHeartwarming, t1, 3)
	b := reviewWith("B", models.CategoryGeneral, t2, 10)
	c := reviewWith("C", models.CategoryHeartwarming, t3, 1)
	all := []models.Review{a, b, c}

	tests := []struct {
		name   string
		filter string
		sort   board.SortMode
		want   []string
	}{
		{"all recent", board.FilterAll, board.SortRecent, []string{"C", "B", "A"}},
		{"all popular", board.FilterAll, board.SortPopular, []string{"B", "A", "C"}},
		{"heartwarming popular", "Heartwarming", board.SortPopular, []string{"A", "C"}},
		{"general recent", "General", board.SortRecent, []string{"B"}},
		{"unknown filter", "Nope", board.SortRecent, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(board.DeriveView(all, tt.filter, tt.sort)))
		})
	}

	assert.Equal(t, []string{"A", "B", "C"}, ids(all), "input order must be preserved")
}

func TestDeriveView_PopularTieBreaks(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	older := reviewWith("older", models.CategoryGeneral, t1, 2)
	newer := reviewWith("newer", models.CategoryGeneral, t2, 2)
	twinA := reviewWith("twinA", models.CategoryGeneral, t1, 0)
	twinB := reviewWith("twinB", models.CategoryGeneral, t1, 0)

	got := board.DeriveView([]models.Review{twinA, older, twinB, newer}, board.FilterAll, board.SortPopular)
	assert.Equal(t, []string{"newer", "older", "twinA", "twinB"}, ids(got))

	got = board.DeriveView([]models.Review{twinB, twinA}, board.FilterAll, board.SortRecent)
	assert.Equal(t, []string{"twinB", "twinA"}, ids(got))
}

func TestParseSortMode(t *testing.T) {
	for in, want := range map[string]board.SortMode{
		"":        board.SortRecent,
		"Recent":  board.SortRecent,
		"popular": board.SortPopular,
		"Popular": board.SortPopular,
	} {
		got, ok := board.ParseSortMode(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := board.ParseSortMode("oldest")
	assert.False(t, ok)
}

func TestCards(t *testing.T) {
	quiet := reviewWith("quiet", models.CategoryGeneral, time.Now(), 0)
	loud := reviewWith("loud", models.CategoryGeneral, time.Now(), 4)
	loud.Reactions.Counts[models.ReactionFire] = 2

	cards := board.Cards([]models.Review{quiet, loud})
	assert.Equal(t, 0, cards[0].TotalReactions)
	assert.Nil(t, cards[0].TopReaction)
	assert.Equal(t, 6, cards[1].TotalReactions)
	if assert.NotNil(t, cards[1].TopReaction) {
		assert.Equal(t, models.ReactionHeart, *cards[1].TopReaction)
	}
}
