package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"moviehub/pkg/database"
)

func main() {
	var (
		moviesOut = flag.String("movies", "data/movies.csv", "output CSV path for movies")
		linksOut  = flag.String("links", "data/user_movies.csv", "output CSV path for user movie links")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportMovies(ctx, db, *moviesOut); err != nil {
		log.Fatalf("export movies failed: %v", err)
	}
	if err := exportLinks(ctx, db, *linksOut); err != nil {
		log.Fatalf("export user movie links failed: %v", err)
	}

	log.Printf("✅ exported movies to %s and links to %s", *moviesOut, *linksOut)
}

func exportMovies(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "imdb_id", "title", "year", "runtime_minutes",
		"genres", "directors", "poster_url", "source", "created_by",
	}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, imdb_id, title, year, runtime_minutes, genres, directors,
			poster_url, source, created_by
		FROM movies
		WHERE deleted_at IS NULL
		ORDER BY title
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			imdbID    sql.NullString
			title     string
			year      sql.NullInt64
			runtime   sql.NullInt64
			genres    sql.NullString
			directors sql.NullString
			poster    sql.NullString
			source    string
			createdBy sql.NullString
		)
		if err := rows.Scan(&id, &imdbID, &title, &year, &runtime,
			&genres, &directors, &poster, &source, &createdBy); err != nil {
			return err
		}

		if err := w.Write([]string{
			id,
			imdbID.String,
			title,
			intString(year),
			intString(runtime),
			joinedList(genres),
			joinedList(directors),
			poster.String,
			source,
			createdBy.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportLinks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"user_id", "movie_id", "is_favorite", "title_override", "year_override",
		"runtime_override", "genres_override", "directors_override", "effective_title", "updated_at",
	}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT user_id, movie_id, is_favorite, title_override, year_override,
			runtime_override, genres_override, directors_override, effective_title, updated_at
		FROM user_movies
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID            string
			movieID           string
			isFavorite        int
			titleOverride     sql.NullString
			yearOverride      sql.NullInt64
			runtimeOverride   sql.NullInt64
			genresOverride    sql.NullString
			directorsOverride sql.NullString
			effectiveTitle    string
			updatedAt         sql.NullTime
		)
		if err := rows.Scan(&userID, &movieID, &isFavorite, &titleOverride, &yearOverride,
			&runtimeOverride, &genresOverride, &directorsOverride, &effectiveTitle, &updatedAt); err != nil {
			return err
		}

		updated := ""
		if updatedAt.Valid {
			updated = updatedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			userID,
			movieID,
			strconv.Itoa(isFavorite),
			titleOverride.String,
			intString(yearOverride),
			intString(runtimeOverride),
			joinedList(genresOverride),
			joinedList(directorsOverride),
			effectiveTitle,
			updated,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func intString(n sql.NullInt64) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}

// joinedList renders the stored JSON array text as a comma-joined cell.
func joinedList(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return ""
	}
	var list []string
	if err := json.Unmarshal([]byte(s.String), &list); err != nil {
		return s.String
	}
	return strings.Join(list, ", ")
}
