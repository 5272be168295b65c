package models

import "time"

type WatchEvent struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	MovieID        string    `json:"movie_id"`
	MinutesWatched int       `json:"minutes_watched"`
	Note           string    `json:"note,omitempty"`
	At             time.Time `json:"at"`
}
