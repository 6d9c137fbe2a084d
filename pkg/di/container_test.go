package di

import (
	"context"
	"testing"

	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/config"
	"github.com/ssargent/mediashelf/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct{ calls int }

func (f *fakeRemote) Search(_ context.Context, title string) ([]catalog.Media, error) {
	f.calls++
	return []catalog.Media{{ImdbID: "tt42", Title: title}}, nil
}

func testConfig(t *testing.T, engine string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Engine = engine
	return cfg
}

func TestContainer_WiresServer(t *testing.T) {
	for _, engine := range []string{storage.EngineLog, storage.EnginePebble} {
		t.Run(engine, func(t *testing.T) {
			c := NewContainer(testConfig(t, engine))
			defer c.Close()

			srv, err := c.Server()
			require.NoError(t, err)
			require.NotNil(t, srv)

			again, err := c.Server()
			require.NoError(t, err)
			assert.Same(t, srv, again)

			media, _, err := c.Stores()
			require.NoError(t, err)
			_, err = media.Insert(context.Background(), catalog.Media{ImdbID: "tt1", Title: "Heat"})
			require.NoError(t, err)
		})
	}
}

func TestContainer_SearchUsesInjectedRemote(t *testing.T) {
	c := NewContainer(testConfig(t, storage.EngineLog))
	defer c.Close()

	remote := &fakeRemote{}
	c.SetSearcher(remote)

	svc, err := c.Search()
	require.NoError(t, err)

	res, err := svc.Search(context.Background(), "Arrival")
	require.NoError(t, err)
	assert.True(t, res.Remote)
	assert.Equal(t, 1, remote.calls)

	media, _, err := c.Stores()
	require.NoError(t, err)
	got, err := media.FindByID(context.Background(), "tt42")
	require.NoError(t, err)
	assert.Equal(t, "Arrival", got.Title)
}

func TestContainer_DisabledEnrichment(t *testing.T) {
	cfg := testConfig(t, storage.EngineLog)
	cfg.Enrich.Enabled = false

	c := NewContainer(cfg)
	defer c.Close()

	svc, err := c.Search()
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestContainer_CloseAndReopen(t *testing.T) {
	c := NewContainer(testConfig(t, storage.EngineLog))

	media, _, err := c.Stores()
	require.NoError(t, err)
	_, err = media.Insert(context.Background(), catalog.Media{ImdbID: "tt1", Title: "Heat"})
	require.NoError(t, err)
	_, err = c.Server()
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	// metric sets are reused, so rebuilding does not double-register
	_, err = c.Server()
	require.NoError(t, err)
	media, _, err = c.Stores()
	require.NoError(t, err)
	got, err := media.FindByID(context.Background(), "tt1")
	require.NoError(t, err)
	assert.Equal(t, "Heat", got.Title)
	require.NoError(t, c.Close())
}

func TestContainer_RegistryCollectsComponentMetrics(t *testing.T) {
	c := NewContainer(testConfig(t, storage.EngineLog))
	defer c.Close()

	_, err := c.Server()
	require.NoError(t, err)

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["shelf_media_total"])
	assert.True(t, names["go_goroutines"])
}
