package reviews

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "classreviews"

// RedisRepo keeps each review in a hash and orders them with a sorted set
// scored by creation time.
type RedisRepo struct {
	Client *redis.Client
	Prefix string
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{Client: client, Prefix: defaultRedisPrefix}
}

func (r *RedisRepo) reviewKey(id string) string { return r.Prefix + ":review:" + id }
func (r *RedisRepo) indexKey() string           { return r.Prefix + ":reviews" }

func (r *RedisRepo) Create(ctx context.Context, rec Record) (Created, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	imageURL := ""
	if rec.ImageURL != nil {
		imageURL = *rec.ImageURL
	}

	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.reviewKey(rec.ID), map[string]any{
			"content":       rec.Content,
			"category":      rec.Category,
			"nickname":      rec.Nickname,
			"imageUrl":      imageURL,
			"imageId":       rec.ImageID,
			"imageChecksum": rec.ImageChecksum,
			"reaction":      rec.Reaction,
			"userReactions": rec.UserReactions,
			"timestamp":     rec.Timestamp,
		})
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(rec.Timestamp), Member: rec.ID})
		return nil
	})
	if err != nil {
		return Created{}, fmt.Errorf("insert review: %w", err)
	}
	return Created{ID: rec.ID, CreatedAt: time.UnixMilli(rec.Timestamp).UTC()}, nil
}

func (r *RedisRepo) Update(ctx context.Context, id string, patch Patch) error {
	p, err := patch.encode()
	if err != nil {
		return err
	}
	if p.empty() {
		return nil
	}

	fields := map[string]any{}
	add := func(name string, v *string) {
		if v != nil {
			fields[name] = *v
		}
	}
	add("content", p.Content)
	add("category", p.Category)
	add("reaction", p.Reaction)
	add("userReactions", p.UserReactions)

	key := r.reviewKey(id)
	err = r.Client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("update review %s: %w", id, err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.reviewKey(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("delete review %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *RedisRepo) List(ctx context.Context, order Order) ([]Record, error) {
	var (
		ids []string
		err error
	)
	if order == OldestFirst {
		ids, err = r.Client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	} else {
		ids, err = r.Client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("list review ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.reviewKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	out := make([]Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// index entry without a hash; skip it
			continue
		}
		rec, err := recordFromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordFromHash(id string, h map[string]string) (Record, error) {
	ts, err := strconv.ParseInt(h["timestamp"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse timestamp of %s: %w", id, err)
	}

	rec := Record{
		ID:            id,
		Content:       h["content"],
		Category:      h["category"],
		Nickname:      h["nickname"],
		ImageID:       h["imageId"],
		ImageChecksum: h["imageChecksum"],
		Reaction:      h["reaction"],
		UserReactions: h["userReactions"],
		Timestamp:     ts,
	}
	if url := h["imageUrl"]; url != "" {
		rec.ImageURL = &url
	}
	return rec, nil
}
