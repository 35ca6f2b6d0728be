package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteRepo keeps review documents in the reviews table.
type SQLiteRepo struct {
	DB *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{DB: db}
}

func (r *SQLiteRepo) Create(ctx context.Context, rec Record) (Created, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (id, content, category, nickname, image_url, image_id, image_checksum, reaction, user_reactions, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Content, rec.Category, rec.Nickname, rec.ImageURL, rec.ImageID, rec.ImageChecksum,
		rec.Reaction, rec.UserReactions, rec.Timestamp)
	if err != nil {
		return Created{}, fmt.Errorf("insert review: %w", err)
	}

	return Created{ID: rec.ID, CreatedAt: time.UnixMilli(rec.Timestamp).UTC()}, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, id string, patch Patch) error {
	p, err := patch.encode()
	if err != nil {
		return err
	}
	if p.empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("content", p.Content)
	add("category", p.Category)
	add("reaction", p.Reaction)
	add("user_reactions", p.UserReactions)
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		`UPDATE reviews SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("update review %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("delete review %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepo) List(ctx context.Context, order Order) ([]Record, error) {
	dir := "DESC"
	if order == OldestFirst {
		dir = "ASC"
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, content, category, nickname, image_url, image_id, image_checksum, reaction, user_reactions, timestamp
		FROM reviews
		ORDER BY timestamp `+dir+`, rowid `+dir)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var imageURL sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Category, &rec.Nickname, &imageURL,
			&rec.ImageID, &rec.ImageChecksum, &rec.Reaction, &rec.UserReactions, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		if imageURL.Valid {
			url := imageURL.String
			rec.ImageURL = &url
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
