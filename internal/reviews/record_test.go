package reviews_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classreviews/internal/reviews"
	"classreviews/pkg/models"
)

func TestRecord_RoundTrip(t *testing.T) {
	ledger := models.NewLedger()
	ledger.Counts[models.ReactionHeart] = 2
	ledger.Counts[models.ReactionSad] = 1
	ledger.Choices["u1"] = models.ReactionHeart
	ledger.Choices["u2"] = models.ReactionHeart
	ledger.Choices["u3"] = models.ReactionSad

	in := models.Review{
		ID:        "r1",
		Content:   "see you at graduation",
		Category:  models.CategoryFutureGoals,
		Nickname:  "Anonymous_12",
		ImageURL:  "http://cdn/x.png",
		ImageID:   "x.png",
		ImageSum:  "0a1b",
		CreatedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		Reactions: ledger,
	}

	rec, err := reviews.EncodeRecord(in)
	require.NoError(t, err)
	assert.Equal(t, in.CreatedAt.UnixMilli(), rec.Timestamp)

	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(rec.Reaction), &counts))
	assert.Equal(t, map[string]int{"heart": 2, "laugh": 0, "surprise": 0, "sad": 1, "fire": 0}, counts)

	var users map[string]string
	require.NoError(t, json.Unmarshal([]byte(rec.UserReactions), &users))
	assert.Equal(t, map[string]string{"u1": "heart", "u2": "heart", "u3": "sad"}, users)

	out, err := rec.Decode()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRecord_DecodeLegacyShapes(t *testing.T) {
	rec := reviews.Record{ID: "old", Content: "hi", Category: "General", Timestamp: 1}

	r, err := rec.Decode()
	require.NoError(t, err)
	assert.Equal(t, models.Counts{}, r.Reactions.Counts)
	assert.NotNil(t, r.Reactions.Choices)
	assert.Empty(t, r.ImageURL)

	rec.Reaction = `{"heart":-3,"fire":2}`
	r, err = rec.Decode()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Reactions.Counts.Get(models.ReactionHeart))
	assert.Equal(t, 2, r.Reactions.Counts.Get(models.ReactionFire))

	rec.Reaction = `{"clap":1}`
	_, err = rec.Decode()
	assert.Error(t, err)
}
