package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"classreviews/internal/app"
	"classreviews/internal/board"
	"classreviews/pkg/utils"
)

// demoDrafts are the reviews a fresh board is shown with.
var demoDrafts = []board.Draft{
	{
		Content:  "These 4 years flew by so fast! Grateful for all the late-night study sessions and the friends who became family. To whoever sat next to me in calculus - thanks for sharing your notes, you're a lifesaver!",
		Category: "Heartwarming",
		Nickname: "Anonymous Owl",
	},
	{
		Content:  "Big shoutout to our group project team in 6 sem! We pulled off that coding assignment despite the crashes and bugs. Also, my bad for spilling chai on your laptop during that all-nighter, hope we're cool now!",
		Category: "Shoutout",
		Nickname: "Coffee Lover",
	},
	{
		Content:  "I wish I had been braver and talked to more people. There were so many interesting classmates I never got to know. Don't be like me - reach out, make connections, life's too short!",
		Category: "Lessons Learned",
		Nickname: "Quiet Observer",
	},
}

func main() {
	var (
		in   = flag.String("in", "", "input CSV with content,category,nickname columns")
		demo = flag.Bool("demo", false, "load the built-in demo reviews")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.LogEnv)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var drafts []board.Draft
	if *demo {
		drafts = append(drafts, demoDrafts...)
	}
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			logger.Fatal("open input", zap.Error(err))
		}
		fromFile, err := readDrafts(f)
		_ = f.Close()
		if err != nil {
			logger.Fatal("read drafts", zap.String("path", *in), zap.Error(err))
		}
		drafts = append(drafts, fromFile...)
	}
	if len(drafts) == 0 {
		logger.Fatal("nothing to import: pass -in FILE or -demo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	n, err := a.Service.Seed(ctx, drafts)
	if err != nil {
		logger.Fatal("import stopped", zap.Int("imported", n), zap.Error(err))
	}
	logger.Info("import finished", zap.Int("imported", n), zap.Int("skipped", len(drafts)-n))
}

// readDrafts reads a CSV whose header names the content, category and
// nickname columns in any order. Only content is required.
func readDrafts(r io.Reader) ([]board.Draft, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if _, ok := header["content"]; !ok {
		return nil, errors.New("missing content column")
	}

	var drafts []board.Draft
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		drafts = append(drafts, board.Draft{
			Content:  valueAt(header, row, "content"),
			Category: valueAt(header, row, "category"),
			Nickname: valueAt(header, row, "nickname"),
		})
	}
	return drafts, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
