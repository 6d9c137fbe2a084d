package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/mediashelf/pkg/storage"
)

// ReviewStore owns the Review collection.
type ReviewStore struct {
	c   *collection[Review]
	now func() time.Time
}

// ReviewOption configures a ReviewStore.
type ReviewOption func(*ReviewStore)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) ReviewOption {
	return func(s *ReviewStore) { s.now = now }
}

// NewReviewStore loads the Review collection from backend. The store takes
// ownership of backend and closes it on Close.
func NewReviewStore(backend storage.Backend, opts ...ReviewOption) (*ReviewStore, error) {
	c, err := newCollection[Review]("reviews", backend)
	if err != nil {
		return nil, err
	}
	s := &ReviewStore{c: c, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns every Review in insertion order.
func (s *ReviewStore) List(ctx context.Context) ([]Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.c.list(nil)
}

// ListByMediaID returns the reviews attached to mediaID in insertion order.
func (s *ReviewStore) ListByMediaID(ctx context.Context, mediaID string) ([]Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.c.list(func(r Review) bool { return r.ElementID == mediaID })
}

// Insert creates a Review for mediaID. It does not check that the Media
// exists; callers that need that guarantee check first.
func (s *ReviewStore) Insert(ctx context.Context, mediaID, comment string, rate float64) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}

	r := Review{
		ID:        ksuid.New().String(),
		Comment:   comment,
		Rate:      rate,
		ElementID: mediaID,
		CreatedAt: s.now().UTC(),
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if err := s.c.put(r.ID, 0, r); err != nil {
		return Review{}, err
	}
	return r, nil
}

// Restore writes a previously exported Review as-is, keeping its id and
// timestamp. An id already present is ErrConflict.
func (s *ReviewStore) Restore(ctx context.Context, r Review) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = ksuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	found, err := s.c.exists(r.ID)
	if err != nil {
		return Review{}, err
	}
	if found {
		return Review{}, ErrConflict
	}
	if err := s.c.put(r.ID, 0, r); err != nil {
		return Review{}, err
	}
	return r, nil
}

// DeleteByID removes the Review and returns it.
func (s *ReviewStore) DeleteByID(ctx context.Context, id string) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	return s.c.remove(id)
}

// Stats reports the size of the underlying backend.
func (s *ReviewStore) Stats() storage.Stats {
	return s.c.backend.Stats()
}

// Close releases the underlying backend.
func (s *ReviewStore) Close() error {
	return s.c.close()
}
