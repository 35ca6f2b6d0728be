package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"classreviews/internal/board"
	"classreviews/internal/grpcserver"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultGRPCAddr = "localhost:9090"
	reviewerHeader  = "X-Reviewer-ID"
)

type listResponse struct {
	Total int          `json:"total"`
	Items []board.Card `json:"items"`
}

type client struct {
	http     *http.Client
	baseURL  string
	reviewer string
}

func main() {
	global := flag.NewFlagSet("classreviews", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	grpcAddr := global.String("grpc", defaultGRPCAddr, "gRPC address")
	reviewer := global.String("reviewer", os.Getenv("CLASSREVIEWS_REVIEWER"), "reviewer id sent with reactions")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	c := &client{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  strings.TrimRight(*baseURL, "/"),
		reviewer: *reviewer,
	}

	switch cmd {
	case "reviews":
		handleReviews(ctx, c, sub, rest)
	case "categories":
		var out map[string]any
		if err := c.doJSON(ctx, http.MethodGet, "/api/categories", nil, &out); err != nil {
			log.Fatalf("categories failed: %v", err)
		}
		printJSON(out)
	case "feed":
		wsURL, err := websocketURL(c.baseURL, "/ws")
		if err != nil {
			log.Fatalf("feed url: %v", err)
		}
		if err := runWebSocket(wsURL); err != nil {
			log.Fatalf("feed: %v", err)
		}
	case "export":
		handleExport(ctx, c, sub, rest)
	case "rpc":
		handleRPC(ctx, *grpcAddr, *reviewer, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleReviews(ctx context.Context, c *client, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("reviews list", flag.ExitOnError)
		category := fs.String("category", board.FilterAll, "category filter")
		sort := fs.String("sort", string(board.SortRecent), "Recent or Popular")
		_ = fs.Parse(args)

		resp, err := c.list(ctx, *category, *sort)
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "post":
		fs := flag.NewFlagSet("reviews post", flag.ExitOnError)
		content := fs.String("content", "", "review text")
		category := fs.String("category", "", "category (default General)")
		nickname := fs.String("nickname", "", "nickname (default Anonymous_NN)")
		image := fs.String("image", "", "path to an image to attach")
		_ = fs.Parse(args)

		draft := board.Draft{Content: *content, Category: *category, Nickname: *nickname}
		var out map[string]any
		var err error
		if *image != "" {
			err = c.postMultipart(ctx, draft, *image, &out)
		} else {
			err = c.doJSON(ctx, http.MethodPost, "/api/reviews", draft, &out)
		}
		if err != nil {
			log.Fatalf("post failed: %v", err)
		}
		printJSON(out)
	case "edit":
		fs := flag.NewFlagSet("reviews edit", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		content := fs.String("content", "", "new text")
		category := fs.String("category", "", "new category")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("id is required")
		}

		var out map[string]any
		payload := map[string]string{"content": *content, "category": *category}
		if err := c.doJSON(ctx, http.MethodPatch, "/api/reviews/"+url.PathEscape(*id), payload, &out); err != nil {
			log.Fatalf("edit failed: %v", err)
		}
		printJSON(out)
	case "delete":
		fs := flag.NewFlagSet("reviews delete", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("id is required")
		}
		if err := c.doJSON(ctx, http.MethodDelete, "/api/reviews/"+url.PathEscape(*id), nil, nil); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println("deleted")
	case "react":
		fs := flag.NewFlagSet("reviews react", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		kind := fs.String("kind", "heart", "heart|laugh|surprise|sad|fire")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("id is required")
		}

		var out map[string]any
		payload := map[string]string{"kind": *kind}
		if err := c.doJSON(ctx, http.MethodPost, "/api/reviews/"+url.PathEscape(*id)+"/reactions", payload, &out); err != nil {
			log.Fatalf("react failed: %v", err)
		}
		printJSON(out)
	default:
		log.Fatal("usage: classreviews reviews <list|post|edit|delete|react>")
	}
}

func handleExport(ctx context.Context, c *client, sub string, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output file")
	category := fs.String("category", board.FilterAll, "category filter")
	_ = fs.Parse(args)
	if *out == "" {
		log.Fatal("-out is required")
	}

	resp, err := c.list(ctx, *category, string(board.SortRecent))
	if err != nil {
		log.Fatalf("fetch reviews: %v", err)
	}

	switch sub {
	case "json":
		err = writeJSON(*out, resp.Items)
	case "csv":
		err = writeCSV(*out, resp.Items)
	default:
		log.Fatal("usage: classreviews export <json|csv> -out FILE")
	}
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	fmt.Printf("exported %d reviews to %s\n", len(resp.Items), *out)
}

func handleRPC(ctx context.Context, addr, reviewer, sub string, args []string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("grpc dial: %v", err)
	}
	defer conn.Close()
	rpc := grpcserver.NewClient(conn)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch sub {
	case "list":
		fs := flag.NewFlagSet("rpc list", flag.ExitOnError)
		category := fs.String("category", board.FilterAll, "category filter")
		sort := fs.String("sort", string(board.SortRecent), "Recent or Popular")
		_ = fs.Parse(args)

		resp, err := rpc.ListReviews(ctx, &grpcserver.ListRequest{Category: *category, Sort: *sort})
		if err != nil {
			log.Fatalf("rpc list: %v", err)
		}
		printJSON(resp)
	case "react":
		fs := flag.NewFlagSet("rpc react", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		kind := fs.String("kind", "heart", "reaction kind")
		_ = fs.Parse(args)

		resp, err := rpc.ToggleReaction(ctx, &grpcserver.ToggleRequest{ReviewID: *id, UserID: reviewer, Kind: *kind})
		if err != nil {
			log.Fatalf("rpc react: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: classreviews rpc <list|react>")
	}
}

func (c *client) list(ctx context.Context, category, sort string) (listResponse, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("sort", sort)
	var resp listResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/reviews?"+q.Encode(), nil, &resp)
	return resp, err
}

func (c *client) postMultipart(ctx context.Context, d board.Draft, imagePath string, out any) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"content": d.Content, "category": d.Category, "nickname": d.Nickname} {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.do(ctx, http.MethodPost, "/api/reviews", w.FormDataContentType(), &buf, out)
}

func (c *client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.reviewer != "" {
		req.Header.Set(reviewerHeader, c.reviewer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func writeJSON(path string, items []board.Card) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []board.Card) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "created_at", "category", "nickname", "content", "image_url", "total_reactions", "top_reaction",
	}); err != nil {
		return err
	}
	for _, item := range items {
		top := ""
		if item.TopReaction != nil {
			top = item.TopReaction.String()
		}
		if err := writer.Write([]string{
			item.ID,
			item.CreatedAt.Format(time.RFC3339),
			string(item.Category),
			item.Nickname,
			item.Content,
			item.ImageURL,
			strconv.Itoa(item.TotalReactions),
			top,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("classreviews [-api URL] [-grpc ADDR] [-reviewer ID] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  reviews list|post|edit|delete|react")
	fmt.Println("  categories")
	fmt.Println("  feed")
	fmt.Println("  export json|csv")
	fmt.Println("  rpc list|react")
}
