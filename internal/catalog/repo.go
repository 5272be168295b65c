package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"moviehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// movieColumns is the SELECT list every movie read shares; keep it in
// sync with scanMovie.
const movieColumns = `id, imdb_id, title, normalized_title, year, runtime_minutes,
	genres, directors, poster_url, source, created_by, deleted_at, created_at, updated_at`

// movieAlive hides soft-deleted rows. Every movie read path appends
// it; no query may bypass it.
const movieAlive = `deleted_at IS NULL`

const linkColumns = `user_id, movie_id, is_favorite, title_override, year_override,
	runtime_override, genres_override, directors_override, effective_title,
	deleted_at, created_at, updated_at`

func scanMovie(sc interface{ Scan(...any) error }) (*models.Movie, error) {
	var (
		m         models.Movie
		imdbID    sql.NullString
		year      sql.NullInt64
		runtime   sql.NullInt64
		genres    sql.NullString
		directors sql.NullString
		poster    sql.NullString
		createdBy sql.NullString
		deletedAt sql.NullTime
	)

	if err := sc.Scan(
		&m.ID, &imdbID, &m.Title, &m.NormalizedTitle, &year, &runtime,
		&genres, &directors, &poster, &m.Source, &createdBy, &deletedAt,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.IMDbID = imdbID.String
	if year.Valid {
		y := int(year.Int64)
		m.Year = &y
	}
	if runtime.Valid {
		rt := int(runtime.Int64)
		m.RuntimeMinutes = &rt
	}
	m.Genres = decodeList(genres)
	m.Directors = decodeList(directors)
	m.PosterURL = poster.String
	m.CreatedBy = createdBy.String
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	return &m, nil
}

func scanLink(sc interface{ Scan(...any) error }) (*models.UserMovieLink, error) {
	var (
		l         models.UserMovieLink
		title     sql.NullString
		year      sql.NullInt64
		runtime   sql.NullInt64
		genres    sql.NullString
		directors sql.NullString
		deletedAt sql.NullTime
	)

	if err := sc.Scan(
		&l.UserID, &l.MovieID, &l.IsFavorite, &title, &year, &runtime,
		&genres, &directors, &l.EffectiveTitle, &deletedAt,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if title.Valid {
		t := title.String
		l.TitleOverride = &t
	}
	if year.Valid {
		y := int(year.Int64)
		l.YearOverride = &y
	}
	if runtime.Valid {
		rt := int(runtime.Int64)
		l.RuntimeOverride = &rt
	}
	l.GenresOverride = decodeList(genres)
	l.DirectorsOverride = decodeList(directors)
	if deletedAt.Valid {
		t := deletedAt.Time
		l.DeletedAt = &t
	}
	return &l, nil
}

// encodeList stores string lists as JSON text, NULL when empty, so
// "no value" and "empty list" collapse to one representation.
func encodeList(list []string) any {
	if len(list) == 0 {
		return nil
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s.String), &out)
	return out
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// translateConstraint maps the storage-level uniqueness violation to
// the same ErrConflict the pre-checks produce, so racing writers and
// polite writers fail identically.
func translateConstraint(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return Wrap(ErrConflict, "effective title already in use")
	}
	return err
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		WHERE id = ? AND `+movieAlive+`
	`, id)

	m, err := scanMovie(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan movie: %w", err)
	}
	return m, nil
}

func (r *Repo) GetByIMDbID(ctx context.Context, imdbID string) (*models.Movie, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		WHERE imdb_id = ? AND `+movieAlive+`
	`, imdbID)

	m, err := scanMovie(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan movie by imdb id: %w", err)
	}
	return m, nil
}

func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]models.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		WHERE id IN (`+makePlaceholders(len(ids))+`) AND `+movieAlive+`
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query movies by ids: %w", err)
	}
	defer rows.Close()

	out := make([]models.Movie, 0, len(ids))
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie row: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// UpsertByIMDbID inserts an upstream record or refreshes the existing
// one in place. The canonical id survives refreshes, and so does the
// poster: it is written at insert and never overwritten after that.
// updated_at is bumped either way, which is what the freshness check
// runs on. Returns the stored row.
func (r *Repo) UpsertByIMDbID(ctx context.Context, m *models.Movie) (*models.Movie, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO movies (id, imdb_id, title, normalized_title, year, runtime_minutes,
			genres, directors, poster_url, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(imdb_id) DO UPDATE SET
			title = excluded.title,
			normalized_title = excluded.normalized_title,
			year = excluded.year,
			runtime_minutes = excluded.runtime_minutes,
			genres = excluded.genres,
			directors = excluded.directors,
			updated_at = CURRENT_TIMESTAMP
	`, m.ID, m.IMDbID, m.Title, m.NormalizedTitle, nullInt(m.Year), nullInt(m.RuntimeMinutes),
		encodeList(m.Genres), encodeList(m.Directors), nullString(m.PosterURL), models.SourceIMDb)
	if err != nil {
		return nil, fmt.Errorf("upsert movie %s: %w", m.IMDbID, err)
	}

	stored, err := r.GetByIMDbID(ctx, m.IMDbID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		// upsert raced a soft-delete; treat as gone
		return nil, nil
	}
	return stored, nil
}

// InsertCustomWithLink creates the canonical custom movie and the
// owner's initial link in one transaction: both land or neither does.
// A uniqueness violation on the link surfaces as ErrConflict.
func (r *Repo) InsertCustomWithLink(ctx context.Context, m *models.Movie, l *models.UserMovieLink) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO movies (id, title, normalized_title, year, runtime_minutes,
			genres, directors, poster_url, source, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, m.ID, m.Title, m.NormalizedTitle, nullInt(m.Year), nullInt(m.RuntimeMinutes),
		encodeList(m.Genres), encodeList(m.Directors), nullString(m.PosterURL),
		models.SourceCustom, m.CreatedBy); err != nil {
		return fmt.Errorf("insert custom movie: %w", translateConstraint(err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_movies (user_id, movie_id, is_favorite, effective_title, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, l.UserID, l.MovieID, l.IsFavorite, l.EffectiveTitle); err != nil {
		return fmt.Errorf("insert initial link: %w", translateConstraint(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateCanonical rewrites the editable canonical fields of a custom
// movie. When the title changed, the stored effective titles of links
// that do not override the title are recomputed in the same
// transaction, so the uniqueness index judges the rename atomically.
// The poster column never appears in the SET list.
func (r *Repo) UpdateCanonical(ctx context.Context, m *models.Movie, renamed bool) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE movies
		SET title = ?, normalized_title = ?, year = ?, runtime_minutes = ?,
			genres = ?, directors = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND `+movieAlive+`
	`, m.Title, m.NormalizedTitle, nullInt(m.Year), nullInt(m.RuntimeMinutes),
		encodeList(m.Genres), encodeList(m.Directors), m.ID)
	if err != nil {
		return fmt.Errorf("update movie: %w", translateConstraint(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Wrap(ErrNotFound, "movie vanished during update")
	}

	if renamed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_movies
			SET effective_title = ?, updated_at = CURRENT_TIMESTAMP
			WHERE movie_id = ? AND title_override IS NULL AND deleted_at IS NULL
		`, m.NormalizedTitle, m.ID); err != nil {
			return fmt.Errorf("recompute effective titles: %w", translateConstraint(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SoftDeleteMovie marks the movie and all of its links deleted in one
// transaction. Links are cascaded so the effective titles they held
// free up immediately for re-use.
func (r *Repo) SoftDeleteMovie(ctx context.Context, movieID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE movies
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND `+movieAlive+`
	`, movieID)
	if err != nil {
		return fmt.Errorf("soft delete movie: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Wrap(ErrNotFound, "movie already gone")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_movies
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE movie_id = ? AND deleted_at IS NULL
	`, movieID); err != nil {
		return fmt.Errorf("cascade link delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repo) ListCustomByUser(ctx context.Context, userID string) ([]models.Movie, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		WHERE source = ? AND created_by = ? AND `+movieAlive+`
	`, models.SourceCustom, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom movies: %w", err)
	}
	defer rows.Close()

	var out []models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custom movie: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) GetLink(ctx context.Context, userID, movieID string) (*models.UserMovieLink, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM user_movies
		WHERE user_id = ? AND movie_id = ? AND deleted_at IS NULL
	`, userID, movieID)

	l, err := scanLink(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan link: %w", err)
	}
	return l, nil
}

// SaveLink inserts or fully rewrites a user's link. Both the favorite
// path and the override path go through here; callers hand in the
// complete desired state. A uniqueness violation on the effective
// title surfaces as ErrConflict.
func (r *Repo) SaveLink(ctx context.Context, l *models.UserMovieLink) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_movies (user_id, movie_id, is_favorite, title_override, year_override,
			runtime_override, genres_override, directors_override, effective_title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, movie_id) DO UPDATE SET
			is_favorite = excluded.is_favorite,
			title_override = excluded.title_override,
			year_override = excluded.year_override,
			runtime_override = excluded.runtime_override,
			genres_override = excluded.genres_override,
			directors_override = excluded.directors_override,
			effective_title = excluded.effective_title,
			updated_at = CURRENT_TIMESTAMP
	`, l.UserID, l.MovieID, l.IsFavorite, stringPtr(l.TitleOverride), nullInt(l.YearOverride),
		nullInt(l.RuntimeOverride), encodeList(l.GenresOverride), encodeList(l.DirectorsOverride),
		l.EffectiveTitle)
	if err != nil {
		return fmt.Errorf("save link: %w", translateConstraint(err))
	}
	return nil
}

// DeleteLink detaches a user from a movie. Hard delete: the link row
// and its claim on the effective title disappear together.
func (r *Repo) DeleteLink(ctx context.Context, userID, movieID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM user_movies
		WHERE user_id = ? AND movie_id = ?
	`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListLinks returns the user's live links whose movie is also live,
// most recently touched first.
func (r *Repo) ListLinks(ctx context.Context, userID string, favoritesOnly bool) ([]models.UserMovieLink, error) {
	q := `
		SELECT l.user_id, l.movie_id, l.is_favorite, l.title_override, l.year_override,
			l.runtime_override, l.genres_override, l.directors_override, l.effective_title,
			l.deleted_at, l.created_at, l.updated_at
		FROM user_movies l
		JOIN movies m ON m.id = l.movie_id AND m.deleted_at IS NULL
		WHERE l.user_id = ? AND l.deleted_at IS NULL
	`
	if favoritesOnly {
		q += ` AND l.is_favorite = 1`
	}
	q += ` ORDER BY l.updated_at DESC`

	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []models.UserMovieLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// FindLinkByEffectiveTitle is the advisory half of the uniqueness
// rule: it answers "would this effective title collide for this user"
// with exactly the scope the unique index enforces (live links only,
// case-insensitive). excludeMovieID skips the movie being edited.
func (r *Repo) FindLinkByEffectiveTitle(ctx context.Context, userID, effectiveTitle, excludeMovieID string) (*models.UserMovieLink, error) {
	q := `
		SELECT ` + linkColumns + `
		FROM user_movies
		WHERE user_id = ? AND lower(effective_title) = lower(?) AND deleted_at IS NULL
	`
	args := []any{userID, effectiveTitle}
	if excludeMovieID != "" {
		q += ` AND movie_id != ?`
		args = append(args, excludeMovieID)
	}

	row := r.DB.QueryRowContext(ctx, q, args...)
	l, err := scanLink(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find link by effective title: %w", err)
	}
	return l, nil
}

// ListStaleIMDb returns upstream-origin movies whose cache entry is
// older than the TTL. Used by the batch refresher.
func (r *Repo) ListStaleIMDb(ctx context.Context, olderThan time.Duration, limit int) ([]models.Movie, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	modifier := fmt.Sprintf("-%d seconds", int64(olderThan.Seconds()))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		WHERE source = ? AND updated_at < datetime('now', ?) AND `+movieAlive+`
		ORDER BY updated_at ASC
		LIMIT ?
	`, models.SourceIMDb, modifier, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale movies: %w", err)
	}
	defer rows.Close()

	var out []models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale movie: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func stringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func makePlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
