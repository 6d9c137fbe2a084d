package catalog

import (
	"context"
	"strings"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/mediashelf/pkg/storage"
)

// CatalogStore owns the Media collection.
type CatalogStore struct {
	c *collection[Media]
}

// NewCatalogStore loads the Media collection from backend. The store takes
// ownership of backend and closes it on Close.
func NewCatalogStore(backend storage.Backend) (*CatalogStore, error) {
	c, err := newCollection[Media]("media", backend)
	if err != nil {
		return nil, err
	}
	return &CatalogStore{c: c}, nil
}

// List returns every Media in insertion order.
func (s *CatalogStore) List(ctx context.Context) ([]Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.c.list(nil)
}

// FindByID returns the Media with the given id or ErrNotFound.
func (s *CatalogStore) FindByID(ctx context.Context, id string) (Media, error) {
	if err := ctx.Err(); err != nil {
		return Media{}, err
	}
	env, err := s.c.get(id)
	if err != nil {
		return Media{}, err
	}
	return env.Data, nil
}

// Insert stores a new Media. A missing id is generated and a missing poster
// is replaced with PlaceholderPoster. An id already present is ErrConflict.
func (s *CatalogStore) Insert(ctx context.Context, m Media) (Media, error) {
	if err := ctx.Err(); err != nil {
		return Media{}, err
	}

	if strings.TrimSpace(m.ImdbID) == "" {
		m.ImdbID = ksuid.New().String()
	}
	if strings.TrimSpace(m.Poster) == "" {
		m.Poster = PlaceholderPoster
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	found, err := s.c.exists(m.ImdbID)
	if err != nil {
		return Media{}, err
	}
	if found {
		return Media{}, ErrConflict
	}
	if err := s.c.put(m.ImdbID, 0, m); err != nil {
		return Media{}, err
	}
	return m, nil
}

// Replace merges the set fields of patch onto the stored Media. The record
// keeps its id and its position in the collection.
func (s *CatalogStore) Replace(ctx context.Context, id string, patch MediaPatch) (Media, error) {
	if err := ctx.Err(); err != nil {
		return Media{}, err
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	env, err := s.c.get(id)
	if err != nil {
		return Media{}, err
	}

	updated := patch.Apply(env.Data)
	updated.ImdbID = env.Data.ImdbID
	if err := s.c.put(id, env.Seq, updated); err != nil {
		return Media{}, err
	}
	return updated, nil
}

// Delete removes the Media and returns it. Reviews that reference it are
// left in place.
func (s *CatalogStore) Delete(ctx context.Context, id string) (Media, error) {
	if err := ctx.Err(); err != nil {
		return Media{}, err
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	return s.c.remove(id)
}

// AppendAll persists a batch of Media fetched from elsewhere and returns the
// records actually written. Records whose id already exists, or repeats an
// earlier id in the same batch, are skipped. Records are otherwise stored
// verbatim; only a missing or blank id is generated.
func (s *CatalogStore) AppendAll(ctx context.Context, batch []Media) ([]Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []Media{}, nil
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	seen := make(map[string]struct{}, len(batch))
	ids := make([]string, 0, len(batch))
	accepted := make([]Media, 0, len(batch))

	for _, m := range batch {
		if strings.TrimSpace(m.ImdbID) == "" {
			m.ImdbID = ksuid.New().String()
		}
		if _, dup := seen[m.ImdbID]; dup {
			continue
		}
		seen[m.ImdbID] = struct{}{}

		found, err := s.c.exists(m.ImdbID)
		if err != nil {
			return nil, err
		}
		if found {
			continue
		}
		ids = append(ids, m.ImdbID)
		accepted = append(accepted, m)
	}

	if len(accepted) == 0 {
		return accepted, nil
	}
	if err := s.c.putAll(ids, accepted); err != nil {
		return nil, err
	}
	return accepted, nil
}

// Stats reports the size of the underlying backend.
func (s *CatalogStore) Stats() storage.Stats {
	return s.c.backend.Stats()
}

// Close releases the underlying backend.
func (s *CatalogStore) Close() error {
	return s.c.close()
}
