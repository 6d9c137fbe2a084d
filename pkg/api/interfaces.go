package api

import (
	"context"
	"io"

	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/search"
	"github.com/ssargent/mediashelf/pkg/storage"
)

// MediaStore defines the Media collection operations the API uses
type MediaStore interface {
	List(ctx context.Context) ([]catalog.Media, error)
	FindByID(ctx context.Context, id string) (catalog.Media, error)
	Insert(ctx context.Context, m catalog.Media) (catalog.Media, error)
	Replace(ctx context.Context, id string, patch catalog.MediaPatch) (catalog.Media, error)
	Delete(ctx context.Context, id string) (catalog.Media, error)
}

// ReviewStore defines the Review collection operations the API uses
type ReviewStore interface {
	List(ctx context.Context) ([]catalog.Review, error)
	ListByMediaID(ctx context.Context, mediaID string) ([]catalog.Review, error)
	Insert(ctx context.Context, mediaID, comment string, rate float64) (catalog.Review, error)
	DeleteByID(ctx context.Context, id string) (catalog.Review, error)
}

// StatsReporter is implemented by stores that can report their engine size.
// The stats refresher publishes it when available.
type StatsReporter interface {
	Stats() storage.Stats
}

// Searcher resolves title queries with remote fallback
type Searcher interface {
	Search(ctx context.Context, title string) (search.Result, error)
}

// Exporter renders the downloadable document of a media record
type Exporter interface {
	Render(ctx context.Context, media catalog.Media, reviews []catalog.Review) io.ReadCloser
}

var (
	_ MediaStore  = (*catalog.CatalogStore)(nil)
	_ ReviewStore = (*catalog.ReviewStore)(nil)
	_ Searcher    = (*search.Service)(nil)

	_ StatsReporter = (*catalog.CatalogStore)(nil)
	_ StatsReporter = (*catalog.ReviewStore)(nil)
)
