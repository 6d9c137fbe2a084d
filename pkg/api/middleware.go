package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/enrich"
	"github.com/ssargent/mediashelf/pkg/logging"
)

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one structured line per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := logging.Ctx(r.Context()).Info()
			if status >= http.StatusInternalServerError {
				ev = logging.Ctx(r.Context()).Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	sendJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendMessage sends a successful JSON response with a human readable message
func sendMessage(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	sendJSON(w, statusCode, APIResponse{Success: true, Data: data, Message: message})
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendJSON(w, statusCode, APIResponse{Success: false, Error: message})
}

func sendValidationError(w http.ResponseWriter, verr *ValidationError) {
	sendJSON(w, http.StatusBadRequest, APIResponse{
		Success: false,
		Error:   "validation failed",
		Details: verr.Fields,
	})
}

func sendJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// writeError maps a core error onto a status code. notFound is the message
// used when err is catalog.ErrNotFound.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var (
		remote *enrich.RemoteError
		verr   *ValidationError
		serr   *catalog.StorageError
	)
	switch {
	case errors.As(err, &verr):
		sendValidationError(w, verr)
	case errors.Is(err, catalog.ErrNotFound):
		sendError(w, notFound, http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		msg := "request timed out"
		if errors.As(err, &remote) {
			msg = remote.Message
		}
		sendError(w, msg, http.StatusGatewayTimeout)
	case errors.As(err, &remote):
		sendError(w, remote.Message, http.StatusNotFound)
	case errors.Is(err, catalog.ErrConflict):
		sendError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.Canceled):
		// client went away; nobody is listening for a body
		logging.Ctx(r.Context()).Debug().Err(err).Msg("request cancelled")
	case errors.As(err, &serr):
		logging.Ctx(r.Context()).Error().Err(err).Str("collection", serr.Collection).Msg("storage failure")
		sendError(w, "internal server error", http.StatusInternalServerError)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		sendError(w, "internal server error", http.StatusInternalServerError)
	}
}
