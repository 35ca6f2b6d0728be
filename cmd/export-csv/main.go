package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"classreviews/internal/app"
	"classreviews/internal/board"
	"classreviews/internal/reviews"
	"classreviews/pkg/models"
	"classreviews/pkg/utils"
)

func main() {
	var (
		dbPath = flag.String("db", "", "SQLite database path (overrides DB_PATH)")
		out    = flag.String("out", "data/reviews.csv", "output CSV path")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeRepo, err := app.OpenRepo(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("open %s store: %v", cfg.StoreBackend, err)
	}
	defer func() { _ = closeRepo() }()

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	n, err := exportReviews(ctx, repo, f)
	if err != nil {
		log.Fatalf("export reviews failed: %v", err)
	}
	log.Printf("exported %d reviews from %s to %s", n, cfg.StoreBackend, *out)
}

func exportReviews(ctx context.Context, repo reviews.Persistence, out io.Writer) (int, error) {
	records, err := repo.List(ctx, reviews.OldestFirst)
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(out)
	header := []string{"id", "created_at", "category", "nickname", "content", "image_url"}
	for _, k := range models.ReactionKinds() {
		header = append(header, k.String())
	}
	header = append(header, "top_reaction")
	if err := w.Write(header); err != nil {
		return 0, err
	}

	n := 0
	for _, rec := range records {
		r, err := rec.Decode()
		if err != nil {
			log.Printf("skipping %s: %v", rec.ID, err)
			continue
		}

		row := []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			string(r.Category),
			r.Nickname,
			r.Content,
			r.ImageURL,
		}
		for _, k := range models.ReactionKinds() {
			row = append(row, strconv.Itoa(r.Reactions.Counts.Get(k)))
		}
		top := ""
		if k, ok := board.TopReaction(r.Reactions.Counts); ok {
			top = k.String()
		}
		row = append(row, top)

		if err := w.Write(row); err != nil {
			return n, err
		}
		n++
	}

	w.Flush()
	return n, w.Error()
}
