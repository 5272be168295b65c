package reviews

import (
	"context"
	"database/sql"
	"fmt"

	"moviehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert writes the caller's review of a movie. One review per
// (user, movie); reviewing again replaces rating and comment.
func (r *Repo) Upsert(ctx context.Context, userID, movieID string, rating int, comment string) (*models.Review, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (user_id, movie_id, rating, comment)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			rating     = excluded.rating,
			comment    = excluded.comment,
			updated_at = CURRENT_TIMESTAMP
	`, userID, movieID, rating, comment)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}

	return r.GetByUserAndMovie(ctx, userID, movieID)
}

func (r *Repo) GetByUserAndMovie(ctx context.Context, userID, movieID string) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, movie_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE user_id = ? AND movie_id = ?
	`, userID, movieID)
	return scanReview(row)
}

func (r *Repo) ListByMovie(ctx context.Context, movieID string, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, movie_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE movie_id = ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, movieID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		var review models.Review
		var comment sql.NullString
		err := rows.Scan(&review.ID, &review.UserID, &review.MovieID, &review.Rating,
			&comment, &review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		review.Comment = comment.String
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Average returns the mean rating and review count for a movie.
// A movie without reviews averages 0 over a count of 0.
func (r *Repo) Average(ctx context.Context, movieID string) (float64, int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE movie_id = ?
	`, movieID)

	var avg float64
	var count int
	if err := row.Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, count, nil
}

func (r *Repo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func scanReview(row *sql.Row) (*models.Review, error) {
	var review models.Review
	var comment sql.NullString
	err := row.Scan(&review.ID, &review.UserID, &review.MovieID, &review.Rating,
		&comment, &review.CreatedAt, &review.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan review: %w", err)
	}
	review.Comment = comment.String
	return &review, nil
}
