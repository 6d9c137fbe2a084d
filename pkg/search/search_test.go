package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/enrich"
	"github.com/ssargent/mediashelf/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	media []catalog.Media
	err   error
	calls int
}

func (s *stubSearcher) Search(context.Context, string) ([]catalog.Media, error) {
	s.calls++
	return s.media, s.err
}

type fixture struct {
	media   *catalog.CatalogStore
	reviews *catalog.ReviewStore
	remote  *stubSearcher
	svc     *Service
}

func newFixture(t *testing.T, engine string) *fixture {
	t.Helper()
	media, reviews, err := catalog.Open(catalog.BackendConfig{Engine: engine}, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.CloseAll(media, reviews) })

	remote := &stubSearcher{}
	gw := enrich.NewGateway(remote, media, time.Second, nil)
	return &fixture{
		media:   media,
		reviews: reviews,
		remote:  remote,
		svc:     New(media, reviews, gw),
	}
}

func forEachEngine(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for _, engine := range []string{storage.EngineLog, storage.EnginePebble} {
		t.Run(engine, func(t *testing.T) {
			fn(t, newFixture(t, engine))
		})
	}
}

func TestSearch_BrowseReturnsEverything(t *testing.T) {
	forEachEngine(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		_, err := f.media.Insert(ctx, catalog.Media{ImdbID: "tt1", Title: "Heat"})
		require.NoError(t, err)
		_, err = f.reviews.Insert(ctx, "tt1", "tense", 5)
		require.NoError(t, err)

		res, err := f.svc.Search(ctx, "")
		require.NoError(t, err)
		assert.True(t, res.Browse)
		assert.Len(t, res.Media, 1)
		assert.Len(t, res.Reviews, 1)
		assert.Zero(t, f.remote.calls)
	})
}

func TestSearch_LocalHitSkipsRemote(t *testing.T) {
	forEachEngine(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		for _, title := range []string{"The Matrix", "Matrix Reloaded", "Heat"} {
			_, err := f.media.Insert(ctx, catalog.Media{Title: title})
			require.NoError(t, err)
		}

		res, err := f.svc.Search(ctx, "mAtRiX")
		require.NoError(t, err)
		require.Len(t, res.Media, 2)
		assert.Equal(t, "The Matrix", res.Media[0].Title)
		assert.Equal(t, "Matrix Reloaded", res.Media[1].Title)
		assert.False(t, res.Remote)
		assert.Zero(t, f.remote.calls)
	})
}

func TestSearch_MissFallsBackAndPersists(t *testing.T) {
	forEachEngine(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.remote.media = []catalog.Media{{ImdbID: "tt0133093", Title: "The Matrix", Year: "1999"}}

		res, err := f.svc.Search(ctx, "matrix")
		require.NoError(t, err)
		assert.True(t, res.Remote)
		require.Len(t, res.Media, 1)
		assert.Equal(t, 1, f.remote.calls)

		stored, err := f.media.FindByID(ctx, "tt0133093")
		require.NoError(t, err)
		assert.Equal(t, "1999", stored.Year)

		// the cached record now satisfies the query locally
		res, err = f.svc.Search(ctx, "matrix")
		require.NoError(t, err)
		assert.False(t, res.Remote)
		assert.Equal(t, 1, f.remote.calls)
	})
}

func TestSearch_MissPropagatesRemoteError(t *testing.T) {
	f := newFixture(t, storage.EngineLog)
	f.remote.err = &enrich.RemoteError{Message: "Movie not found!"}

	_, err := f.svc.Search(context.Background(), "nothing")
	var re *enrich.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Movie not found!", re.Message)
}
