package catalog

import "time"

// PlaceholderPoster is stored when a locally created Media has no poster.
const PlaceholderPoster = "https://m.media-amazon.com/images/M/MV5BMTM5MzcwOTg4MF5BMl5BanBnXkFtZTgwOTQwMzQxMDE@._V1_SX300.jpg"

// Media is a catalog entry. Field names match the OMDb search payload so
// remote results can be stored verbatim.
type Media struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// MediaPatch carries the fields a Replace should overwrite. Nil fields are
// left untouched; the id is never patchable.
type MediaPatch struct {
	Title  *string `json:"Title,omitempty"`
	Year   *string `json:"Year,omitempty"`
	Type   *string `json:"Type,omitempty"`
	Poster *string `json:"Poster,omitempty"`
}

// Apply merges the set fields of p onto m and returns the result.
func (p MediaPatch) Apply(m Media) Media {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Year != nil {
		m.Year = *p.Year
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Poster != nil {
		m.Poster = *p.Poster
	}
	return m
}

// Empty reports whether the patch sets no fields.
func (p MediaPatch) Empty() bool {
	return p.Title == nil && p.Year == nil && p.Type == nil && p.Poster == nil
}

// Review is a user comment and rating attached to a Media by ElementID.
// ElementID is not enforced as a foreign key; reviews outlive their media.
type Review struct {
	ID        string    `json:"_id"`
	Comment   string    `json:"comment"`
	Rate      float64   `json:"rate"`
	ElementID string    `json:"elementId"`
	CreatedAt time.Time `json:"createdAt"`
}
