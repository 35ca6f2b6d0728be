package reviews

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"classreviews/internal/blob"
	"classreviews/internal/board"
	"classreviews/internal/metrics"
	"classreviews/internal/store"
	synchub "classreviews/internal/sync"
	"classreviews/pkg/models"
)

// Publisher receives an event after every write that reached persistence.
type Publisher interface {
	Publish(ctx context.Context, ev synchub.ReviewEvent) error
}

// Image is an upload attached to a submission.
type Image struct {
	Data []byte
}

type Options struct {
	Repo       Persistence
	Blobs      blob.Storage
	Store      *store.Store
	Events     Publisher
	Metrics    *metrics.Metrics
	Policy     board.ReactionPolicy
	Normalizer board.Normalizer
	// MaxImageBytes of zero means blob.DefaultMaxBytes.
	MaxImageBytes int64
	Logger        *zap.Logger
}

// Service runs every board operation against the in-memory store and the
// persistence collaborator. Reaction toggles are applied to the store first
// and rolled back if persisting them fails.
type Service struct {
	repo       Persistence
	blobs      blob.Storage
	store      *store.Store
	events     Publisher
	metrics    *metrics.Metrics
	policy     board.ReactionPolicy
	normalizer board.Normalizer
	maxImage   int64
	log        *zap.Logger

	// serializes local read-check-write sequences so the reaction cap holds
	// within one process
	writeMu sync.Mutex
}

func NewService(opts Options) *Service {
	s := &Service{
		repo:       opts.Repo,
		blobs:      opts.Blobs,
		store:      opts.Store,
		events:     opts.Events,
		metrics:    opts.Metrics,
		policy:     opts.Policy,
		normalizer: opts.Normalizer,
		maxImage:   opts.MaxImageBytes,
		log:        opts.Logger,
	}
	if s.store == nil {
		s.store = store.New()
	}
	if s.normalizer.Now == nil || s.normalizer.Intn == nil {
		s.normalizer = board.NewNormalizer()
	}
	if s.maxImage <= 0 {
		s.maxImage = blob.DefaultMaxBytes
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Service) Store() *store.Store { return s.store }

// Refresh replaces the store with the authoritative collection. The result
// is dropped when any other write reached the store while the fetch was in
// flight.
func (s *Service) Refresh(ctx context.Context) error {
	version := s.store.Get().Version

	records, err := s.repo.List(ctx, NewestFirst)
	if err != nil {
		s.metrics.Failure("list")
		return board.Persistence("list reviews", err)
	}

	reviews := make([]models.Review, 0, len(records))
	for _, rec := range records {
		r, err := rec.Decode()
		if err != nil {
			s.log.Warn("skipping undecodable review", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		reviews = append(reviews, r)
	}

	if !s.store.SetIfCurrent(version, reviews) {
		s.metrics.StaleRefresh()
		s.log.Debug("discarded stale refresh", zap.Uint64("read_version", version))
	}
	return nil
}

// Board returns the derived view as cards.
func (s *Service) Board(filter string, sort board.SortMode) []board.Card {
	return board.Cards(board.DeriveView(s.store.Get().Reviews, filter, sort))
}

func (s *Service) Submit(ctx context.Context, draft board.Draft, img *Image) (models.Review, error) {
	review, err := s.normalizer.Normalize(draft)
	if err != nil {
		s.rejected(err)
		return models.Review{}, err
	}

	var contentType string
	if img != nil {
		if s.blobs == nil {
			err = board.Invalid("image", board.ErrInvalidImage)
		} else if contentType, err = blob.DetectImage(img.Data, s.maxImage); err != nil {
			err = board.Invalid("image", fmt.Errorf("%w: %v", board.ErrInvalidImage, err))
		}
		if err != nil {
			s.rejected(err)
			return models.Review{}, err
		}
	}

	if img != nil {
		obj, err := s.blobs.Put(ctx, img.Data, contentType)
		if err != nil {
			s.metrics.Failure("upload")
			return models.Review{}, board.Persistence("upload image", err)
		}
		review.ImageURL, review.ImageID, review.ImageSum = obj.PublicURL, obj.ID, obj.Checksum
	}

	rec, err := EncodeRecord(review)
	if err != nil {
		return models.Review{}, err
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.metrics.Failure("create")
		s.discardImage(ctx, review.ImageID)
		return models.Review{}, board.Persistence("create review", err)
	}
	review.ID = created.ID
	review.CreatedAt = created.CreatedAt

	s.store.Update(func(reviews []models.Review) []models.Review {
		return store.Upsert(reviews, review)
	})
	s.metrics.Submission("accepted")
	s.publish(ctx, synchub.EventCreated, review, "")
	s.log.Info("review submitted", zap.String("id", review.ID), zap.String("category", string(review.Category)))
	return review, nil
}

// React toggles kind for userID. The store shows the new ledger before the
// persistence call returns; on failure the previous ledger is put back and
// the store is reconciled with one refresh.
func (s *Service) React(ctx context.Context, reviewID, userID string, kind models.ReactionKind) (models.Review, board.Outcome, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.store.Get()
	updated, outcome, err := s.policy.React(snap.Reviews, reviewID, userID, kind)
	if err != nil {
		switch {
		case errors.Is(err, board.ErrQuotaExceeded):
			s.metrics.QuotaRejected()
		case errors.Is(err, board.ErrInvalidReference):
			s.reconcile(ctx)
		}
		return models.Review{}, "", err
	}
	previous, _ := board.Find(snap.Reviews, reviewID)

	s.store.Update(func(reviews []models.Review) []models.Review {
		return store.Upsert(reviews, updated)
	})

	if err := s.repo.Update(ctx, reviewID, Patch{Reactions: &updated.Reactions}); err != nil {
		s.store.Update(func(reviews []models.Review) []models.Review {
			return store.Upsert(reviews, previous)
		})
		s.reconcile(ctx)
		if errors.Is(err, ErrNotFound) {
			return models.Review{}, "", board.ErrInvalidReference
		}
		s.metrics.Failure("update")
		return models.Review{}, "", board.Persistence("update reactions", err)
	}

	// a refresh that listed before the write landed must not win
	s.store.Update(func(reviews []models.Review) []models.Review {
		return store.Upsert(reviews, updated)
	})

	s.metrics.Reaction(string(outcome))
	s.publish(ctx, synchub.EventReacted, updated, outcome)
	return updated, outcome, nil
}

// Edit replaces content and category. The nickname, image, ledger and
// creation time are kept.
func (s *Service) Edit(ctx context.Context, id, content, category string) (models.Review, error) {
	newContent, newCategory, err := board.NormalizeEdit(content, category)
	if err != nil {
		return models.Review{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := board.Find(s.store.Get().Reviews, id)
	if err != nil {
		s.reconcile(ctx)
		return models.Review{}, err
	}

	if err := s.repo.Update(ctx, id, Patch{Content: &newContent, Category: &newCategory}); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.reconcile(ctx)
			return models.Review{}, board.ErrInvalidReference
		}
		s.metrics.Failure("update")
		return models.Review{}, board.Persistence("update review", err)
	}

	updated := current.Clone()
	updated.Content = newContent
	updated.Category = newCategory
	s.store.Update(func(reviews []models.Review) []models.Review {
		return store.Upsert(reviews, updated)
	})
	s.publish(ctx, synchub.EventUpdated, updated, "")
	return updated, nil
}

// Delete removes the review's image first, then the review itself.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := board.Find(s.store.Get().Reviews, id)
	if err != nil {
		s.reconcile(ctx)
		return err
	}

	if current.ImageID != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, current.ImageID); err != nil {
			s.metrics.Failure("delete_image")
			return board.Persistence("delete image", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.reconcile(ctx)
			return board.ErrInvalidReference
		}
		s.metrics.Failure("delete")
		return board.Persistence("delete review", err)
	}

	s.store.Update(func(reviews []models.Review) []models.Review {
		return store.Remove(reviews, id)
	})
	s.publish(ctx, synchub.EventDeleted, models.Review{ID: id}, "")
	s.log.Info("review deleted", zap.String("id", id))
	return nil
}

// Run loads the board and then refreshes it every interval until ctx is
// done. A non-positive interval disables polling.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial refresh failed", zap.Error(err))
	}
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("refresh failed", zap.Error(err))
			}
		}
	}
}

// Seed submits drafts in order. Drafts that fail validation are skipped; a
// persistence failure stops seeding.
func (s *Service) Seed(ctx context.Context, drafts []board.Draft) (int, error) {
	n := 0
	for i, d := range drafts {
		if _, err := s.Submit(ctx, d, nil); err != nil {
			if board.IsValidation(err) {
				s.log.Warn("skipping seed draft", zap.Int("index", i), zap.Error(err))
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Service) reconcile(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("reconcile refresh failed", zap.Error(err))
	}
}

func (s *Service) discardImage(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		s.log.Warn("orphaned image", zap.String("image_id", id), zap.Error(err))
	}
}

func (s *Service) rejected(err error) {
	rule := "invalid"
	var ve *board.ValidationError
	if errors.As(err, &ve) {
		rule = ve.Rule()
	}
	s.metrics.Submission(rule)
}

func (s *Service) publish(ctx context.Context, typ string, r models.Review, outcome board.Outcome) {
	if s.events == nil {
		return
	}
	ev := synchub.ReviewEvent{Type: typ, ReviewID: r.ID, Outcome: string(outcome), At: time.Now().UTC()}
	if typ != synchub.EventDeleted {
		ev.Review = &r
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}
