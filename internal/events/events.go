package events

import "time"

// Catalog event types pushed to subscribers.
const (
	TypeFavorite      = "favorite"
	TypeUnfavorite    = "unfavorite"
	TypeCustomCreated = "custom_created"
	TypeMovieUpdated  = "movie_updated"
	TypeMovieDeleted  = "movie_deleted"
)

// CatalogEvent is the wire shape for both the TCP feed (one JSON object
// per line) and the /ws/events WebSocket.
type CatalogEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	MovieID  string    `json:"movie_id"`
	Title    string    `json:"title,omitempty"`
	Favorite bool      `json:"favorite,omitempty"`
	At       time.Time `json:"at"`
}
