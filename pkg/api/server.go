// Package api exposes the MediaShelf catalog over HTTP.
//
// Routes live under /media. Reads are open; when an API key is configured,
// every mutating route requires it in the X-API-Key header. /health and
// /metrics sit outside the key check so health checks and scrapers need no
// credentials.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssargent/mediashelf/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

// Router builds the HTTP handler. gatherer backs /metrics; nil selects the
// default Prometheus gatherer.
func (s *Server) Router(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	m := s.metrics

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(s.config.AllowedOrigins)))
	if s.config.RateLimitRequests > 0 && s.config.RateLimitWindow > 0 {
		r.Use(httprate.Limit(
			s.config.RateLimitRequests,
			s.config.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				sendError(w, "Too many requests", http.StatusTooManyRequests)
			}),
		))
	}

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", m.InstrumentHandler("GET", "/health", s.handleHealth))

	guard := func(next http.Handler) http.Handler { return next }
	if s.config.APIKey != "" {
		guard = m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey))
	}

	r.Route("/media", func(r chi.Router) {
		r.Get("/", m.InstrumentHandler("GET", "/media", s.handleListMedia))
		r.Get("/{id}", m.InstrumentHandler("GET", "/media/{id}", s.handleGetMedia))
		r.Get("/{id}/pdf", m.InstrumentHandler("GET", "/media/{id}/pdf", s.handleExportPDF))

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/", m.InstrumentHandler("POST", "/media", s.handleCreateMedia))
			r.Put("/{id}", m.InstrumentHandler("PUT", "/media/{id}", s.handleUpdateMedia))
			r.Delete("/{id}", m.InstrumentHandler("DELETE", "/media/{id}", s.handleDeleteMedia))
			r.Post("/{id}/reviews", m.InstrumentHandler("POST", "/media/{id}/reviews", s.handleCreateReview))
			r.Delete("/reviews/{id}", m.InstrumentHandler("DELETE", "/media/reviews/{id}", s.handleDeleteReview))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// corsOptions whitelists origins. An empty list allows no cross-origin
// callers at all rather than falling back to the library's wildcard.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return opts
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.config.StatsInterval > 0 {
		go s.startStatsUpdater(ctx, s.config.StatsInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("starting MediaShelf API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
