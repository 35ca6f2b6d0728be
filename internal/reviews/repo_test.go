package reviews_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classreviews/internal/reviews"
	"classreviews/pkg/database"
	"classreviews/pkg/models"
)

func newSQLiteRepo(t *testing.T) reviews.Persistence {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "board.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return reviews.NewSQLiteRepo(db)
}

func newRedisRepo(t *testing.T) reviews.Persistence {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return reviews.NewRedisRepo(client)
}

func sampleRecord(t *testing.T, content string, at time.Time) reviews.Record {
	t.Helper()
	rec, err := reviews.EncodeRecord(models.Review{
		Content:   content,
		Category:  models.CategoryFunnyMoments,
		Nickname:  "Anonymous_7",
		CreatedAt: at,
		Reactions: models.NewLedger(),
	})
	require.NoError(t, err)
	return rec
}

func TestPersistence(t *testing.T) {
	backends := map[string]func(*testing.T) reviews.Persistence{
		"sqlite": newSQLiteRepo,
		"redis":  newRedisRepo,
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("create and list newest first", func(t *testing.T) {
				repo := open(t)
				ctx := context.Background()
				base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

				first, err := repo.Create(ctx, sampleRecord(t, "first", base))
				require.NoError(t, err)
				second, err := repo.Create(ctx, sampleRecord(t, "second", base.Add(time.Minute)))
				require.NoError(t, err)
				assert.NotEmpty(t, first.ID)
				assert.Equal(t, base, first.CreatedAt)

				recs, err := repo.List(ctx, reviews.NewestFirst)
				require.NoError(t, err)
				require.Len(t, recs, 2)
				assert.Equal(t, second.ID, recs[0].ID)
				assert.Equal(t, first.ID, recs[1].ID)

				recs, err = repo.List(ctx, reviews.OldestFirst)
				require.NoError(t, err)
				assert.Equal(t, first.ID, recs[0].ID)

				r, err := recs[0].Decode()
				require.NoError(t, err)
				assert.Equal(t, "first", r.Content)
				assert.Equal(t, models.CategoryFunnyMoments, r.Category)
				assert.Empty(t, r.ImageURL)
			})

			t.Run("update patches only given fields", func(t *testing.T) {
				repo := open(t)
				ctx := context.Background()
				created, err := repo.Create(ctx, sampleRecord(t, "before", time.Now()))
				require.NoError(t, err)

				ledger := models.NewLedger()
				ledger.Counts[models.ReactionFire] = 1
				ledger.Choices["anonymous"] = models.ReactionFire
				require.NoError(t, repo.Update(ctx, created.ID, reviews.Patch{Reactions: &ledger}))

				content := "after"
				require.NoError(t, repo.Update(ctx, created.ID, reviews.Patch{Content: &content}))

				recs, err := repo.List(ctx, reviews.NewestFirst)
				require.NoError(t, err)
				require.Len(t, recs, 1)
				r, err := recs[0].Decode()
				require.NoError(t, err)
				assert.Equal(t, "after", r.Content)
				assert.Equal(t, models.CategoryFunnyMoments, r.Category)
				assert.Equal(t, 1, r.Reactions.Counts.Get(models.ReactionFire))
				assert.Equal(t, models.ReactionFire, r.Reactions.Choices["anonymous"])
			})

			t.Run("missing ids", func(t *testing.T) {
				repo := open(t)
				ctx := context.Background()
				content := "x"
				assert.ErrorIs(t, repo.Update(ctx, "nope", reviews.Patch{Content: &content}), reviews.ErrNotFound)
				assert.ErrorIs(t, repo.Delete(ctx, "nope"), reviews.ErrNotFound)
			})

			t.Run("delete", func(t *testing.T) {
				repo := open(t)
				ctx := context.Background()
				created, err := repo.Create(ctx, sampleRecord(t, "gone soon", time.Now()))
				require.NoError(t, err)

				require.NoError(t, repo.Delete(ctx, created.ID))
				recs, err := repo.List(ctx, reviews.NewestFirst)
				require.NoError(t, err)
				assert.Empty(t, recs)
			})

			t.Run("image fields survive", func(t *testing.T) {
				repo := open(t)
				ctx := context.Background()
				rec := sampleRecord(t, "with photo", time.Now())
				url := "http://localhost:8080/uploads/abc.png"
				rec.ImageURL = &url
				rec.ImageID = "abc.png"
				rec.ImageChecksum = "5e3f"
				_, err := repo.Create(ctx, rec)
				require.NoError(t, err)

				recs, err := repo.List(ctx, reviews.NewestFirst)
				require.NoError(t, err)
				require.NotNil(t, recs[0].ImageURL)
				assert.Equal(t, url, *recs[0].ImageURL)
				assert.Equal(t, "abc.png", recs[0].ImageID)
				assert.Equal(t, "5e3f", recs[0].ImageChecksum)
			})
		})
	}
}
