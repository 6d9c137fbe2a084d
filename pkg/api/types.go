package api

import (
	"time"

	"github.com/ssargent/mediashelf/pkg/catalog"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

// BrowseResponse is returned by GET /media without a title filter
type BrowseResponse struct {
	Media   []catalog.Media  `json:"media"`
	Reviews []catalog.Review `json:"reviews"`
}

// SearchResponse is returned by GET /media?Title=
type SearchResponse struct {
	Media []catalog.Media `json:"media"`
}

// MediaDetailResponse is a single media record with its reviews
type MediaDetailResponse struct {
	Media   catalog.Media    `json:"media"`
	Reviews []catalog.Review `json:"reviews"`
}

// CreateMediaRequest is the body of POST /media
type CreateMediaRequest struct {
	Title  string `json:"Title" validate:"required,max=300"`
	Year   string `json:"Year" validate:"required,max=32"`
	Type   string `json:"Type" validate:"required,oneof=movie series episode"`
	Poster string `json:"Poster" validate:"omitempty,url"`
}

// UpdateMediaRequest is the body of PUT /media/{id}. Absent fields are kept.
type UpdateMediaRequest struct {
	Title  *string `json:"Title" validate:"omitnil,min=1,max=300"`
	Year   *string `json:"Year" validate:"omitnil,min=1,max=32"`
	Type   *string `json:"Type" validate:"omitnil,oneof=movie series episode"`
	Poster *string `json:"Poster" validate:"omitnil,url"`
}

func (u UpdateMediaRequest) patch() catalog.MediaPatch {
	return catalog.MediaPatch{Title: u.Title, Year: u.Year, Type: u.Type, Poster: u.Poster}
}

// CreateReviewRequest is the body of POST /media/{id}/reviews
type CreateReviewRequest struct {
	Comment string   `json:"comment" validate:"required,max=5000"`
	Rate    *float64 `json:"rate" validate:"required,min=0,max=5"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	// APIKey, when set, guards every mutating route
	APIKey            string
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// StatsInterval controls how often catalog size gauges are refreshed;
	// zero disables the refresher.
	StatsInterval time.Duration
}
