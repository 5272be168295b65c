package models

import "time"

// Movie source tags. Upstream lookups and user-created entries share
// one table; Source tells the write paths apart.
const (
	SourceIMDb   = "imdb"
	SourceCustom = "custom"
)

// Movie is the canonical, globally shared record of a film.
//
// Upstream lookups are converted into this structure before anything
// is written to the DB; custom entries are born in it.
type Movie struct {
	ID              string     `json:"id"`                        // our canonical ID (uuid)
	IMDbID          string     `json:"imdb_id,omitempty"`         // set only for upstream records
	Title           string     `json:"title"`                     // raw display title
	NormalizedTitle string     `json:"normalized_title"`          // comparison key, never user-edited
	Year            *int       `json:"year,omitempty"`            // 1888..2100 when present
	RuntimeMinutes  *int       `json:"runtime_minutes,omitempty"` // > 0 when present
	Genres          []string   `json:"genres,omitempty"`
	Directors       []string   `json:"directors,omitempty"`
	PosterURL       string     `json:"poster_url,omitempty"` // immutable after creation
	Source          string     `json:"source"`               // "imdb" or "custom"
	CreatedBy       string     `json:"created_by,omitempty"` // owner, custom movies only
	DeletedAt       *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MovieDraft is the payload for creating a custom movie.
type MovieDraft struct {
	Title          string   `json:"title"`
	Year           int      `json:"year"`
	RuntimeMinutes int      `json:"runtime_minutes"`
	Genres         []string `json:"genres"`
	Directors      []string `json:"directors"`
	PosterURL      string   `json:"poster_url,omitempty"`
}

// MoviePatch is a partial update. Nil fields are left untouched.
// PosterURL is carried only so the write path can reject it.
type MoviePatch struct {
	Title          *string  `json:"title,omitempty"`
	Year           *int     `json:"year,omitempty"`
	RuntimeMinutes *int     `json:"runtime_minutes,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Directors      []string `json:"directors,omitempty"`
	PosterURL      *string  `json:"poster_url,omitempty"`
}

// SearchResult is the hybrid search response shape. Total adds the
// upstream-reported total and the number of custom matches returned,
// which can double-count a film present on both sides.
type SearchResult struct {
	Items                []EffectiveMovie `json:"items"`
	Total                int              `json:"total"`
	Page                 int              `json:"page"`
	IncludesCustomMovies bool             `json:"includes_custom_movies"`
}
