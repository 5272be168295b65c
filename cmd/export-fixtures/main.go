package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moviehub/pkg/database"
)

// FixtureRecord mirrors the OMDb detail shape the mock-upstream serves.
type FixtureRecord struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Runtime  string `json:"Runtime,omitempty"`
	Genre    string `json:"Genre,omitempty"`
	Director string `json:"Director,omitempty"`
	Poster   string `json:"Poster,omitempty"`
	IMDbID   string `json:"imdbID"`
	Type     string `json:"Type"`
}

func main() {
	var (
		outPath = flag.String("out", "data/omdb.json", "output JSON path")
		limit   = flag.Int("limit", 500, "how many movies to export")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT imdb_id, title, year, runtime_minutes, genres, directors, poster_url
		FROM movies
		WHERE source = 'imdb' AND deleted_at IS NULL
		ORDER BY title
		LIMIT ?
	`, *limit)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	var out []FixtureRecord
	for rows.Next() {
		var (
			imdbID    string
			title     string
			year      sql.NullInt64
			runtime   sql.NullInt64
			genres    sql.NullString
			directors sql.NullString
			poster    sql.NullString
		)
		if err := rows.Scan(&imdbID, &title, &year, &runtime, &genres, &directors, &poster); err != nil {
			log.Fatalf("scan failed: %v", err)
		}

		out = append(out, FixtureRecord{
			Title:    title,
			Year:     intString(year),
			Runtime:  runtimeString(runtime),
			Genre:    joinedList(genres),
			Director: joinedList(directors),
			Poster:   poster.String,
			IMDbID:   imdbID,
			Type:     "movie",
		})
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("rows error: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.Fatalf("write failed: %v", err)
	}

	log.Printf("✅ exported %d movies to %s", len(out), *outPath)
}

func intString(n sql.NullInt64) string {
	if !n.Valid {
		return ""
	}
	return fmt.Sprintf("%d", n.Int64)
}

func runtimeString(n sql.NullInt64) string {
	if !n.Valid || n.Int64 <= 0 {
		return ""
	}
	return fmt.Sprintf("%d min", n.Int64)
}

// joinedList renders a JSON-encoded string list the way OMDb does:
// comma separated in one field.
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
