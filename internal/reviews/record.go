package reviews

import (
	"encoding/json"
	"fmt"
	"time"

	"classreviews/pkg/models"
)

// Record is the persisted document shape. The ledger travels as two
// JSON-encoded strings so that flat stores (SQL columns, Redis hash fields)
// can hold it without a nested schema.
type Record struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	Category      string  `json:"category"`
	Nickname      string  `json:"nickname"`
	ImageURL      *string `json:"imageUrl"`
	ImageID       string  `json:"imageId,omitempty"`
	ImageChecksum string  `json:"imageChecksum,omitempty"`
	Reaction      string  `json:"reaction"`
	Timestamp     int64   `json:"timestamp"`
	UserReactions string  `json:"userReactions"`
}

func EncodeRecord(r models.Review) (Record, error) {
	reaction, userReactions, err := encodeLedger(r.Reactions)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:            r.ID,
		Content:       r.Content,
		Category:      string(r.Category),
		Nickname:      r.Nickname,
		ImageID:       r.ImageID,
		ImageChecksum: r.ImageSum,
		Reaction:      reaction,
		UserReactions: userReactions,
	}
	if r.ImageURL != "" {
		url := r.ImageURL
		rec.ImageURL = &url
	}
	if !r.CreatedAt.IsZero() {
		rec.Timestamp = r.CreatedAt.UnixMilli()
	}
	return rec, nil
}

func (rec Record) Decode() (models.Review, error) {
	ledger, err := decodeLedger(rec.Reaction, rec.UserReactions)
	if err != nil {
		return models.Review{}, fmt.Errorf("decode review %s: %w", rec.ID, err)
	}

	r := models.Review{
		ID:        rec.ID,
		Content:   rec.Content,
		Category:  models.Category(rec.Category),
		Nickname:  rec.Nickname,
		ImageID:   rec.ImageID,
		ImageSum:  rec.ImageChecksum,
		CreatedAt: time.UnixMilli(rec.Timestamp).UTC(),
		Reactions: ledger,
	}
	if rec.ImageURL != nil {
		r.ImageURL = *rec.ImageURL
	}
	return r, nil
}

func encodeLedger(l models.Ledger) (reaction, userReactions string, err error) {
	counts, err := json.Marshal(l.Counts)
	if err != nil {
		return "", "", fmt.Errorf("encode reaction counts: %w", err)
	}

	choices := l.Choices
	if choices == nil {
		choices = map[string]models.ReactionKind{}
	}
	users, err := json.Marshal(choices)
	if err != nil {
		return "", "", fmt.Errorf("encode user reactions: %w", err)
	}
	return string(counts), string(users), nil
}

// decodeLedger treats empty strings as an untouched ledger.
func decodeLedger(reaction, userReactions string) (models.Ledger, error) {
	l := models.NewLedger()
	if reaction != "" {
		if err := json.Unmarshal([]byte(reaction), &l.Counts); err != nil {
			return l, fmt.Errorf("reaction counts: %w", err)
		}
	}
	if userReactions != "" {
		if err := json.Unmarshal([]byte(userReactions), &l.Choices); err != nil {
			return l, fmt.Errorf("user reactions: %w", err)
		}
		if l.Choices == nil {
			l.Choices = make(map[string]models.ReactionKind)
		}
	}
	return l, nil
}
