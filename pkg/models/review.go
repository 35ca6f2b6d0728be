package models

import "time"

type Category string

const (
	CategoryGeneral        Category = "General"
	CategoryHeartwarming   Category = "Heartwarming"
	CategoryFunnyMoments   Category = "Funny Moments"
	CategoryLessonsLearned Category = "Lessons Learned"
	CategoryShoutout       Category = "Shoutout"
	CategoryRegrets        Category = "Regrets"
	CategorySecretCrush    Category = "Secret Crush"
	CategoryFutureGoals    Category = "Future Goals"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryGeneral,
	CategoryHeartwarming,
	CategoryFunnyMoments,
	CategoryLessonsLearned,
	CategoryShoutout,
	CategoryRegrets,
	CategorySecretCrush,
	CategoryFutureGoals,
}

func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type Review struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	Nickname  string    `json:"nickname"`
	ImageURL  string    `json:"image_url,omitempty"`
	ImageID   string    `json:"image_id,omitempty"`
	// ImageSum is the hex BLAKE2b-256 of the stored image bytes.
	ImageSum  string    `json:"image_checksum,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Reactions Ledger    `json:"reactions"`
}

// Clone returns a copy that shares no mutable state with r.
func (r Review) Clone() Review {
	r.Reactions = r.Reactions.Clone()
	return r
}
