package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/export"
	"github.com/ssargent/mediashelf/pkg/logging"
)

const maxBodyBytes = 1 << 20

// Server holds the API server state
type Server struct {
	media    MediaStore
	reviews  ReviewStore
	search   Searcher
	exporter Exporter
	config   ServerConfig
	metrics  *Metrics
}

// NewServer creates a new API server. A nil metrics gets an unregistered set.
func NewServer(media MediaStore, reviews ReviewStore, search Searcher, exporter Exporter, config ServerConfig, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Server{
		media:    media,
		reviews:  reviews,
		search:   search,
		exporter: exporter,
		config:   config,
		metrics:  metrics,
	}
}

// observe times a catalog call for the operation metrics.
func (s *Server) observe(operation string, start time.Time, err error) {
	s.metrics.RecordCatalogOperation(operation, err == nil || errors.Is(err, catalog.ErrNotFound), time.Since(start))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListMedia browses the catalog or searches it by ?Title=
func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	title := r.URL.Query().Get("Title")

	res, err := s.search.Search(r.Context(), title)
	s.observe("search", start, err)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("No media matches %q.", title))
		return
	}

	if res.Browse {
		sendSuccess(w, BrowseResponse{Media: res.Media, Reviews: res.Reviews})
		return
	}
	sendSuccess(w, SearchResponse{Media: res.Media})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	m, err := s.media.FindByID(r.Context(), id)
	s.observe("find", start, err)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("Media with the imdbID: %s not found.", id))
		return
	}

	reviews, err := s.reviews.ListByMediaID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	sendSuccess(w, MediaDetailResponse{Media: m, Reviews: reviews})
}

func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	var req CreateMediaRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	m, err := s.media.Insert(r.Context(), catalog.Media{
		Title:  req.Title,
		Year:   req.Year,
		Type:   req.Type,
		Poster: req.Poster,
	})
	s.observe("insert", start, err)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	sendMessage(w, http.StatusCreated, map[string]catalog.Media{"newMedia": m}, "New media was created with success!")
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateMediaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	patch := req.patch()
	if patch.Empty() {
		sendValidationError(w, &ValidationError{Fields: []FieldError{{
			Field: "body", Tag: "required", Message: "at least one of Title, Year, Type or Poster is required",
		}}})
		return
	}

	start := time.Now()
	m, err := s.media.Replace(r.Context(), id, patch)
	s.observe("replace", start, err)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("Media with the id: %s not found.", id))
		return
	}
	sendMessage(w, http.StatusOK, map[string]catalog.Media{"updatedMedia": m},
		fmt.Sprintf("The media with imdbID: %s was updated.", m.ImdbID))
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	m, err := s.media.Delete(r.Context(), id)
	s.observe("delete", start, err)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("The media with the imdbID: %s was not found.", id))
		return
	}
	sendMessage(w, http.StatusOK, map[string]catalog.Media{"deletedMedia": m},
		fmt.Sprintf("The media with the id: %s was deleted", m.ImdbID))
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req CreateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	if _, err := s.media.FindByID(r.Context(), id); err != nil {
		s.observe("find", start, err)
		writeError(w, r, err, fmt.Sprintf("Media with the imdbID: %s not found.", id))
		return
	}

	rev, err := s.reviews.Insert(r.Context(), id, req.Comment, *req.Rate)
	s.observe("review_insert", start, err)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	sendMessage(w, http.StatusCreated, map[string]catalog.Review{"newReview": rev}, "New review was created with success!")
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	rev, err := s.reviews.DeleteByID(r.Context(), id)
	s.observe("review_delete", start, err)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("The review with the ID: %s was not found.", id))
		return
	}
	sendMessage(w, http.StatusOK, map[string]catalog.Review{"review": rev},
		fmt.Sprintf("The review with the id: %s was deleted", rev.ID))
}

// handleExportPDF streams the media document. Once the first byte is out the
// status line is committed, so a generation failure aborts the connection
// rather than ending the body cleanly.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := s.media.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, fmt.Sprintf("The media with the imdbID: %s not found.", id))
		return
	}
	reviews, err := s.reviews.ListByMediaID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	stream := s.exporter.Render(r.Context(), m, reviews)
	defer stream.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", export.ContentDisposition(m))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	_, err = io.Copy(flushWriter{w}, stream)
	if err == nil {
		s.metrics.RecordExport(true)
		return
	}
	s.metrics.RecordExport(false)

	var serr *export.StreamError
	if errors.As(err, &serr) && !errors.Is(err, context.Canceled) {
		logging.Ctx(r.Context()).Error().Err(err).Str("media_id", id).Msg("pdf stream failed")
		panic(http.ErrAbortHandler)
	}
	logging.Ctx(r.Context()).Debug().Err(err).Str("media_id", id).Msg("pdf download interrupted")
}

// decodeBody reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler should continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return false
	}
	if err := validateStruct(dst); err != nil {
		writeError(w, r, err, "")
		return false
	}
	return true
}

// flushWriter pushes every chunk to the client as it is produced.
type flushWriter struct {
	w http.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
	return n, err
}

// startStatsUpdater periodically refreshes the catalog size gauges
func (s *Server) startStatsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.updateStats(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) updateStats(ctx context.Context) {
	media, err := s.media.List(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("stats refresh failed")
		return
	}
	reviews, err := s.reviews.List(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("stats refresh failed")
		return
	}
	s.metrics.UpdateCatalogStats(len(media), len(reviews))

	if st, ok := s.media.(StatsReporter); ok {
		s.metrics.UpdateStorageStats("media", st.Stats())
	}
	if st, ok := s.reviews.(StatsReporter); ok {
		s.metrics.UpdateStorageStats("reviews", st.Stats())
	}
}
