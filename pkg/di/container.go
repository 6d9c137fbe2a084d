// Package di wires the MediaShelf components from configuration
package di

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ssargent/mediashelf/pkg/api" //nolint:depguard
	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/config"
	"github.com/ssargent/mediashelf/pkg/enrich"
	"github.com/ssargent/mediashelf/pkg/export"
	"github.com/ssargent/mediashelf/pkg/search"
)

// statsInterval is how often the catalog size gauges are refreshed
const statsInterval = 30 * time.Second

// Container holds all the dependencies for the application. Components are
// built on first use and shared afterwards.
type Container struct {
	cfg *config.Config

	mu       sync.Mutex
	registry *prometheus.Registry
	// metric sets register once per registry and survive Close
	enrichMetrics *enrich.Metrics
	apiMetrics    *api.Metrics

	media    *catalog.CatalogStore
	reviews  *catalog.ReviewStore
	searcher enrich.Searcher
	gateway  *enrich.Gateway
	search   *search.Service
	renderer *export.Renderer
	server   *api.Server
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) *Container {
	return &Container{cfg: cfg}
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Registry returns the Prometheus registry every component registers with
func (c *Container) Registry() *prometheus.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registryLocked()
}

func (c *Container) registryLocked() *prometheus.Registry {
	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c.registry
}

// Stores opens the Media and Review collections
func (c *Container) Stores() (*catalog.CatalogStore, *catalog.ReviewStore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storesLocked()
}

func (c *Container) storesLocked() (*catalog.CatalogStore, *catalog.ReviewStore, error) {
	if c.media != nil {
		return c.media, c.reviews, nil
	}
	media, reviews, err := catalog.Open(catalog.BackendConfig{
		Engine:        c.cfg.Storage.Engine,
		FsyncInterval: c.cfg.Storage.FsyncInterval,
	}, c.cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog in %s: %w", c.cfg.DataDir, err)
	}
	c.media, c.reviews = media, reviews
	return media, reviews, nil
}

// SetSearcher overrides the remote lookup (for testing)
func (c *Container) SetSearcher(s enrich.Searcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searcher = s
}

func (c *Container) searcherLocked(metrics *enrich.Metrics) enrich.Searcher {
	if c.searcher != nil {
		return c.searcher
	}
	e := c.cfg.Enrich
	if !e.Enabled || e.APIKey == "" {
		c.searcher = enrich.Disabled{}
		return c.searcher
	}
	c.searcher = enrich.NewClient(enrich.Config{
		BaseURL:         e.BaseURL,
		APIKey:          e.APIKey,
		Timeout:         e.Timeout,
		RatePerSecond:   e.RatePerSecond,
		Burst:           e.Burst,
		MaxRetries:      e.MaxRetries,
		BreakerFailures: e.BreakerFailures,
		BreakerCooldown: e.BreakerCooldown,
	}, metrics)
	return c.searcher
}

// Search returns the catalog search service with remote fallback
func (c *Container) Search() (*search.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchLocked()
}

func (c *Container) searchLocked() (*search.Service, error) {
	if c.search != nil {
		return c.search, nil
	}
	media, reviews, err := c.storesLocked()
	if err != nil {
		return nil, err
	}
	if c.enrichMetrics == nil {
		c.enrichMetrics = enrich.NewMetrics(c.registryLocked())
	}
	c.gateway = enrich.NewGateway(c.searcherLocked(c.enrichMetrics), media, c.cfg.Enrich.Timeout, c.enrichMetrics)
	c.search = search.New(media, reviews, c.gateway)
	return c.search, nil
}

// Renderer returns the PDF renderer
func (c *Container) Renderer() *export.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.renderer == nil {
		c.renderer = export.NewRenderer(c.cfg.Export.ReviewsPerPage)
	}
	return c.renderer
}

// Server returns the HTTP API server
func (c *Container) Server() (*api.Server, error) {
	renderer := c.Renderer()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.server != nil {
		return c.server, nil
	}
	svc, err := c.searchLocked()
	if err != nil {
		return nil, err
	}
	if c.apiMetrics == nil {
		c.apiMetrics = api.NewMetrics(c.registryLocked())
	}
	c.server = api.NewServer(c.media, c.reviews, svc, renderer, api.ServerConfig{
		APIKey:            c.cfg.Security.APIKey,
		AllowedOrigins:    c.cfg.Security.AllowedOrigins(),
		RateLimitRequests: c.cfg.RateLimit.Requests,
		RateLimitWindow:   c.cfg.RateLimit.Window,
		StatsInterval:     statsInterval,
	}, c.apiMetrics)
	return c.server, nil
}

// Close releases the collections
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.media == nil {
		return nil
	}
	err := catalog.CloseAll(c.media, c.reviews)
	c.media, c.reviews = nil, nil
	c.search, c.gateway, c.server = nil, nil, nil
	if err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return nil
}
