// Package search resolves title queries against the local catalog and
// falls back to the remote catalog when nothing matches.
package search

import (
	"context"
	"strings"

	"github.com/ssargent/mediashelf/pkg/catalog"
)

// MediaLister reads the local Media collection.
type MediaLister interface {
	List(ctx context.Context) ([]catalog.Media, error)
}

// ReviewLister reads the local Review collection.
type ReviewLister interface {
	List(ctx context.Context) ([]catalog.Review, error)
}

// Fallback is consulted when a title matches nothing locally.
type Fallback interface {
	SearchAndCache(ctx context.Context, title string) ([]catalog.Media, error)
}

// Result of a search. Browse is set when no title was given, in which case
// Reviews holds the whole review collection.
type Result struct {
	Media   []catalog.Media
	Reviews []catalog.Review
	Browse  bool
	Remote  bool
}

// Service implements catalog search.
type Service struct {
	media    MediaLister
	reviews  ReviewLister
	fallback Fallback
}

// New builds a search service.
func New(media MediaLister, reviews ReviewLister, fallback Fallback) *Service {
	return &Service{media: media, reviews: reviews, fallback: fallback}
}

// Search returns every Media whose title contains title, case-insensitively,
// in insertion order. An empty title browses the whole catalog. When nothing
// matches, the fallback's records or error are returned unchanged.
func (s *Service) Search(ctx context.Context, title string) (Result, error) {
	all, err := s.media.List(ctx)
	if err != nil {
		return Result{}, err
	}

	if title == "" {
		reviews, err := s.reviews.List(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Media: all, Reviews: reviews, Browse: true}, nil
	}

	needle := strings.ToLower(title)
	matches := make([]catalog.Media, 0)
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Title), needle) {
			matches = append(matches, m)
		}
	}
	if len(matches) > 0 {
		return Result{Media: matches}, nil
	}

	fetched, err := s.fallback.SearchAndCache(ctx, title)
	if err != nil {
		return Result{}, err
	}
	return Result{Media: fetched, Remote: true}, nil
}
