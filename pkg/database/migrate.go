package database

import (
	"database/sql"
	"fmt"
)

// schema is idempotent: every statement is IF NOT EXISTS, so Migrate
// can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    token_version INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS movies (
    id               TEXT PRIMARY KEY,
    imdb_id          TEXT UNIQUE,
    title            TEXT NOT NULL,
    normalized_title TEXT NOT NULL,
    year             INTEGER,
    runtime_minutes  INTEGER,
    genres           TEXT,
    directors        TEXT,
    poster_url       TEXT,
    source           TEXT NOT NULL CHECK (source IN ('imdb', 'custom')),
    created_by       TEXT REFERENCES users(id),
    deleted_at       TIMESTAMP,
    created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_movies_normalized_title ON movies(normalized_title);
CREATE INDEX IF NOT EXISTS idx_movies_custom_owner ON movies(created_by) WHERE source = 'custom';

CREATE TABLE IF NOT EXISTS user_movies (
    user_id            TEXT NOT NULL REFERENCES users(id),
    movie_id           TEXT NOT NULL REFERENCES movies(id),
    is_favorite        INTEGER NOT NULL DEFAULT 0,
    title_override     TEXT,
    year_override      INTEGER,
    runtime_override   INTEGER,
    genres_override    TEXT,
    directors_override TEXT,
    effective_title    TEXT NOT NULL,
    deleted_at         TIMESTAMP,
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, movie_id)
);

-- The per-user title uniqueness invariant lives here, not in app code:
-- concurrent writers racing toward the same effective title cannot both win.
CREATE UNIQUE INDEX IF NOT EXISTS idx_user_movies_effective_title
    ON user_movies(user_id, lower(effective_title))
    WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_user_movies_updated ON user_movies(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS reviews (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    TEXT NOT NULL REFERENCES users(id),
    movie_id   TEXT NOT NULL REFERENCES movies(id),
    rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment    TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, movie_id)
);

CREATE TABLE IF NOT EXISTS watch_history (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         TEXT NOT NULL REFERENCES users(id),
    movie_id        TEXT NOT NULL REFERENCES movies(id),
    minutes_watched INTEGER NOT NULL DEFAULT 0,
    note            TEXT,
    watched_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_watch_history_user ON watch_history(user_id, watched_at DESC);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
