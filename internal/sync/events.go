package sync

import (
	"time"

	"classreviews/pkg/models"
)

const (
	EventCreated = "review.created"
	EventUpdated = "review.updated"
	EventReacted = "review.reacted"
	EventDeleted = "review.deleted"
)

// ReviewEvent is pushed to every feed client after a board write lands.
type ReviewEvent struct {
	Type     string         `json:"type"`
	ReviewID string         `json:"review_id"`
	Review   *models.Review `json:"review,omitempty"`
	Outcome  string         `json:"outcome,omitempty"`
	At       time.Time      `json:"at"`
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}
