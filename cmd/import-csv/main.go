package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"moviehub/internal/catalog"
	"moviehub/pkg/database"
)

func main() {
	var (
		moviesIn = flag.String("movies", "data/movies.csv", "input CSV path for movies")
		linksIn  = flag.String("links", "data/user_movies.csv", "input CSV path for user movie links")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importMovies(ctx, db, *moviesIn); err != nil {
		log.Fatalf("import movies failed: %v", err)
	}
	if err := importLinks(ctx, db, *linksIn); err != nil {
		log.Fatalf("import user movie links failed: %v", err)
	}

	log.Printf("✅ imported movies from %s and links from %s", *moviesIn, *linksIn)
}

func importMovies(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO movies (id, imdb_id, title, normalized_title, year, runtime_minutes,
			genres, directors, poster_url, source, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			imdb_id          = excluded.imdb_id,
			title            = excluded.title,
			normalized_title = excluded.normalized_title,
			year             = excluded.year,
			runtime_minutes  = excluded.runtime_minutes,
			genres           = excluded.genres,
			directors        = excluded.directors,
			poster_url       = excluded.poster_url,
			source           = excluded.source,
			created_by       = excluded.created_by,
			updated_at       = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		title := valueAt(header, row, "title")
		if id == "" || title == "" {
			continue
		}

		source := valueAt(header, row, "source")
		if source != "imdb" && source != "custom" {
			return fmt.Errorf("movie %s: source must be imdb or custom, got %q", id, source)
		}

		year, err := parseNullInt(valueAt(header, row, "year"))
		if err != nil {
			return fmt.Errorf("parse year for %s: %w", id, err)
		}
		runtime, err := parseNullInt(valueAt(header, row, "runtime_minutes"))
		if err != nil {
			return fmt.Errorf("parse runtime_minutes for %s: %w", id, err)
		}

		// the comparison key is always recomputed, never trusted from the file
		normalized := catalog.NormalizeTitle(title)

		if _, err := stmt.ExecContext(
			ctx,
			id,
			nullString(valueAt(header, row, "imdb_id")),
			title,
			normalized,
			year,
			runtime,
			listJSON(valueAt(header, row, "genres")),
			listJSON(valueAt(header, row, "directors")),
			nullString(valueAt(header, row, "poster_url")),
			source,
			nullString(valueAt(header, row, "created_by")),
		); err != nil {
			return err
		}
	}

	return nil
}

func importLinks(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO user_movies (user_id, movie_id, is_favorite, title_override,
			year_override, runtime_override, genres_override, directors_override, effective_title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, movie_id) DO UPDATE SET
			is_favorite        = excluded.is_favorite,
			title_override     = excluded.title_override,
			year_override      = excluded.year_override,
			runtime_override   = excluded.runtime_override,
			genres_override    = excluded.genres_override,
			directors_override = excluded.directors_override,
			effective_title    = excluded.effective_title,
			updated_at         = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		userID := valueAt(header, row, "user_id")
		movieID := valueAt(header, row, "movie_id")
		if userID == "" || movieID == "" {
			continue
		}

		yearOverride, err := parseNullInt(valueAt(header, row, "year_override"))
		if err != nil {
			return fmt.Errorf("parse year_override for %s/%s: %w", userID, movieID, err)
		}
		runtimeOverride, err := parseNullInt(valueAt(header, row, "runtime_override"))
		if err != nil {
			return fmt.Errorf("parse runtime_override for %s/%s: %w", userID, movieID, err)
		}

		titleOverride := valueAt(header, row, "title_override")
		effectiveSource := titleOverride
		if effectiveSource == "" {
			// fall back to the canonical title
			if err := db.QueryRowContext(ctx,
				`SELECT title FROM movies WHERE id = ?`, movieID).Scan(&effectiveSource); err != nil {
				return fmt.Errorf("resolve effective title for %s/%s: %w", userID, movieID, err)
			}
		}
		// recomputed like the movies importer, never trusted from the file
		effectiveTitle := catalog.NormalizeTitle(effectiveSource)

		if _, err := stmt.ExecContext(
			ctx,
			userID,
			movieID,
			parseBool(valueAt(header, row, "is_favorite")),
			nullString(titleOverride),
			yearOverride,
			runtimeOverride,
			listJSON(valueAt(header, row, "genres_override")),
			listJSON(valueAt(header, row, "directors_override")),
			effectiveTitle,
		); err != nil {
			return err
		}
	}

	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func parseBool(raw string) int {
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return 1
	default:
		return 0
	}
}

// listJSON turns a comma-joined CSV cell into the JSON array text the
// repo layer stores, NULL when empty.
func listJSON(raw string) any {
	if raw == "" {
		return nil
	}
	var list []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	if len(list) == 0 {
		return nil
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
