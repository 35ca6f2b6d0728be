package store

import (
	"sync"

	"classreviews/pkg/models"
)

// Snapshot is an immutable view of the review collection. Version grows by
// one on every accepted write.
type Snapshot struct {
	Reviews []models.Review
	Version uint64
}

// Store holds the in-memory review collection shared by the HTTP, gRPC and
// feed surfaces. It is a read-through cache of the persistence collaborator,
// never persisted itself.
type Store struct {
	mu      sync.RWMutex
	reviews []models.Review
	version uint64

	nextSub int
	subs    map[int]func(Snapshot)
}

func New() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// Get returns the current snapshot. Callers must not modify the returned
// reviews.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Reviews: s.reviews, Version: s.version}
}

// Set replaces the whole collection.
func (s *Store) Set(reviews []models.Review) Snapshot {
	s.mu.Lock()
	snap := s.replaceLocked(reviews)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

// SetIfCurrent replaces the collection only when no write happened since
// version was read. It reports whether the write was applied; a false
// result means the caller's data is stale and was discarded.
func (s *Store) SetIfCurrent(version uint64, reviews []models.Review) bool {
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		return false
	}
	snap := s.replaceLocked(reviews)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// Update applies fn to a private copy of the collection and stores the result.
func (s *Store) Update(fn func(reviews []models.Review) []models.Review) Snapshot {
	s.mu.Lock()
	working := make([]models.Review, len(s.reviews))
	copy(working, s.reviews)
	snap := s.replaceLocked(fn(working))
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return snap
}

// Subscribe registers fn to be called after every accepted write. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) replaceLocked(reviews []models.Review) Snapshot {
	s.reviews = reviews
	s.version++
	return Snapshot{Reviews: s.reviews, Version: s.version}
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// Upsert replaces the review with the same ID or prepends it.
func Upsert(reviews []models.Review, r models.Review) []models.Review {
	for i := range reviews {
		if reviews[i].ID == r.ID {
			reviews[i] = r
			return reviews
		}
	}
	return append([]models.Review{r}, reviews...)
}

// Remove drops the review with id, if present.
func Remove(reviews []models.Review, id string) []models.Review {
	out := reviews[:0]
	for _, r := range reviews {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
