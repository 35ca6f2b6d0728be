package board

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"classreviews/pkg/models"
)

const (
	MaxContentLength  = 500
	MaxNicknameLength = 50
	AnonymousPrefix   = "Anonymous_"
)

// Draft is a submission as typed by the user.
type Draft struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Nickname string `json:"nickname"`
}

// Normalizer validates drafts and turns them into reviews ready for the
// persistence collaborator. Lengths are counted in runes.
type Normalizer struct {
	Now  func() time.Time
	Intn func(n int) int
}

func NewNormalizer() Normalizer {
	return Normalizer{Now: time.Now, Intn: rand.IntN}
}

func (n Normalizer) Normalize(d Draft) (models.Review, error) {
	content, err := normalizeContent(d.Content)
	if err != nil {
		return models.Review{}, err
	}

	nickname := strings.TrimSpace(d.Nickname)
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return models.Review{}, Invalid("nickname", ErrNicknameTooLong)
	}

	category, err := normalizeCategory(d.Category)
	if err != nil {
		return models.Review{}, err
	}

	if nickname == "" {
		nickname = n.anonymous()
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	return models.Review{
		Content:   content,
		Category:  category,
		Nickname:  nickname,
		CreatedAt: now().UTC(),
		Reactions: models.NewLedger(),
	}, nil
}

// NormalizeEdit applies the content and category rules to an edit of an
// existing review.
func NormalizeEdit(content, category string) (string, models.Category, error) {
	c, err := normalizeContent(content)
	if err != nil {
		return "", "", err
	}
	cat, err := normalizeCategory(category)
	if err != nil {
		return "", "", err
	}
	return c, cat, nil
}

func (n Normalizer) anonymous() string {
	intn := rand.IntN
	if n.Intn != nil {
		intn = n.Intn
	}
	return fmt.Sprintf("%s%d", AnonymousPrefix, intn(100))
}

func normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", Invalid("content", ErrEmptyContent)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", Invalid("content", ErrContentTooLong)
	}
	return content, nil
}

func normalizeCategory(raw string) (models.Category, error) {
	if raw == "" {
		return models.CategoryGeneral, nil
	}
	category, ok := models.ParseCategory(raw)
	if !ok {
		return "", Invalid("category", ErrInvalidCategory)
	}
	return category, nil
}
