package reviews

import (
	"context"
	"errors"
	"time"

	"classreviews/pkg/models"
)

var ErrNotFound = errors.New("record not found")

type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

type Created struct {
	ID        string
	CreatedAt time.Time
}

// Patch lists the fields of an update. Nil fields are left alone; set
// fields are overwritten whole, the ledger included.
type Patch struct {
	Content   *string
	Category  *models.Category
	Reactions *models.Ledger
}

// Persistence is the document store of record.
type Persistence interface {
	Create(ctx context.Context, rec Record) (Created, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, order Order) ([]Record, error)
}

// encodedPatch is a Patch flattened to Record field values.
type encodedPatch struct {
	Content       *string
	Category      *string
	Reaction      *string
	UserReactions *string
}

func (p Patch) encode() (encodedPatch, error) {
	var out encodedPatch
	out.Content = p.Content
	if p.Category != nil {
		c := string(*p.Category)
		out.Category = &c
	}
	if p.Reactions != nil {
		reaction, users, err := encodeLedger(*p.Reactions)
		if err != nil {
			return out, err
		}
		out.Reaction = &reaction
		out.UserReactions = &users
	}
	return out, nil
}

func (p encodedPatch) empty() bool {
	return p.Content == nil && p.Category == nil && p.Reaction == nil && p.UserReactions == nil
}
