package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moviehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Add(ctx context.Context, entry models.WatchEvent) (*models.WatchEvent, error) {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	var note any
	if entry.Note != "" {
		note = entry.Note
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO watch_history (user_id, movie_id, minutes_watched, note, watched_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.UserID, entry.MovieID, entry.MinutesWatched, note, entry.At)
	if err != nil {
		return nil, fmt.Errorf("insert watch event: %w", err)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &entry, nil
}

// List returns the caller's watch events newest first, optionally
// narrowed to one movie.
func (r *Repo) List(ctx context.Context, userID, movieID string, limit, offset int) ([]models.WatchEvent, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `WHERE user_id = ?`
	args := []any{userID}
	if movieID != "" {
		where += ` AND movie_id = ?`
		args = append(args, movieID)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watch_history `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count watch history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, movie_id, minutes_watched, note, watched_at
		FROM watch_history `+where+`
		ORDER BY watched_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	out := make([]models.WatchEvent, 0, limit)
	for rows.Next() {
		var entry models.WatchEvent
		var note sql.NullString

		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.MovieID,
			&entry.MinutesWatched, &note, &entry.At); err != nil {
			return nil, 0, fmt.Errorf("scan watch event: %w", err)
		}
		entry.Note = note.String
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows watch history: %w", err)
	}

	return out, total, nil
}

// TotalMinutes sums everything the user has logged.
func (r *Repo) TotalMinutes(ctx context.Context, userID string) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(minutes_watched), 0)
		FROM watch_history
		WHERE user_id = ?
	`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum watch minutes: %w", err)
	}
	return total, nil
}
