package models

import "time"

// UserMovieLink ties one user to one canonical movie and carries the
// user's private state: favorite flag and per-field overrides.
//
// EffectiveTitle is normalize(TitleOverride ?? canonical title) and is
// what the per-user uniqueness constraint runs on. It is stored, not
// computed on read, so the DB index can enforce the invariant.
type UserMovieLink struct {
	UserID            string     `json:"user_id"`
	MovieID           string     `json:"movie_id"`
	IsFavorite        bool       `json:"is_favorite"`
	TitleOverride     *string    `json:"title_override,omitempty"`
	YearOverride      *int       `json:"year_override,omitempty"`
	RuntimeOverride   *int       `json:"runtime_override,omitempty"`
	GenresOverride    []string   `json:"genres_override,omitempty"`
	DirectorsOverride []string   `json:"directors_override,omitempty"`
	EffectiveTitle    string     `json:"effective_title"`
	DeletedAt         *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EffectiveMovie is the user-facing view of a movie: canonical fields
// with that user's overrides layered on top. Poster is always the
// canonical one.
type EffectiveMovie struct {
	ID             string    `json:"id"`
	IMDbID         string    `json:"imdb_id,omitempty"`
	Title          string    `json:"title"`
	Year           *int      `json:"year,omitempty"`
	RuntimeMinutes *int      `json:"runtime_minutes,omitempty"`
	Genres         []string  `json:"genres,omitempty"`
	Directors      []string  `json:"directors,omitempty"`
	PosterURL      string    `json:"poster_url,omitempty"`
	Source         string    `json:"source"`
	IsFavorite     bool      `json:"is_favorite"`
	Overrides      Overrides `json:"overrides"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Overrides echoes the raw override values so clients can tell which
// fields differ from the canonical record. Unset fields render as
// explicit nulls.
type Overrides struct {
	Title          *string  `json:"title"`
	Year           *int     `json:"year"`
	RuntimeMinutes *int     `json:"runtime_minutes"`
	Genres         []string `json:"genres"`
	Directors      []string `json:"directors"`
}
