package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Serves an OMDb-compatible API from data/omdb.json so the api-server
// and refresh-cache can run without a real key. The file is re-read on
// every request; edits show up without a restart.

const pageSize = 10

type record struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Runtime  string `json:"Runtime,omitempty"`
	Genre    string `json:"Genre,omitempty"`
	Director string `json:"Director,omitempty"`
	Poster   string `json:"Poster,omitempty"`
	IMDbID   string `json:"imdbID"`
	Type     string `json:"Type,omitempty"`
}

type searchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// builtin keeps the mock usable before export-fixtures has run.
var builtin = []record{
	{Title: "Dune", Year: "2021", Runtime: "155 min", Genre: "Action, Adventure, Drama", Director: "Denis Villeneuve", IMDbID: "tt1160419", Type: "movie"},
	{Title: "Dune: Part Two", Year: "2024", Runtime: "166 min", Genre: "Action, Adventure, Drama", Director: "Denis Villeneuve", IMDbID: "tt15239678", Type: "movie"},
	{Title: "Inception", Year: "2010", Runtime: "148 min", Genre: "Action, Sci-Fi", Director: "Christopher Nolan", IMDbID: "tt1375666", Type: "movie"},
	{Title: "The Matrix", Year: "1999", Runtime: "136 min", Genre: "Action, Sci-Fi", Director: "Lana Wachowski, Lilly Wachowski", IMDbID: "tt0133093", Type: "movie"},
	{Title: "Interstellar", Year: "2014", Runtime: "169 min", Genre: "Adventure, Drama, Sci-Fi", Director: "Christopher Nolan", IMDbID: "tt0816692", Type: "movie"},
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	dataPath := flag.String("data", "data/omdb.json", "fixture JSON path")
	flag.Parse()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("apikey") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"Response": "False",
				"Error":    "No API key provided.",
			})
			return
		}

		records, err := loadRecords(*dataPath)
		if err != nil {
			http.Error(w, "fixtures: "+err.Error(), http.StatusInternalServerError)
			return
		}

		if id := q.Get("i"); id != "" {
			serveDetails(w, records, id)
			return
		}
		if s := q.Get("s"); s != "" {
			serveSearch(w, records, s, q.Get("page"))
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"Response": "False",
			"Error":    "Incorrect IMDb ID.",
		})
	})

	log.Printf("mock-upstream listening on %s (fixtures: %s)", *addr, *dataPath)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

// loadRecords reads the fixture file, falling back to the built-in set
// when the file does not exist.
func loadRecords(path string) ([]record, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return builtin, nil
	}
	if err != nil {
		return nil, err
	}

	var records []record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%s invalid JSON: %w", path, err)
	}
	return records, nil
}

func serveSearch(w http.ResponseWriter, records []record, query, pageRaw string) {
	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		page = 1
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	var matches []record
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Title), needle) {
			matches = append(matches, rec)
		}
	}

	if len(matches) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{
			"Response": "False",
			"Error":    "Movie not found!",
		})
		return
	}

	start := (page - 1) * pageSize
	if start > len(matches) {
		start = len(matches)
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}

	items := make([]searchItem, 0, end-start)
	for _, rec := range matches[start:end] {
		mediaType := rec.Type
		if mediaType == "" {
			mediaType = "movie"
		}
		items = append(items, searchItem{
			Title:  rec.Title,
			Year:   rec.Year,
			IMDbID: rec.IMDbID,
			Type:   mediaType,
			Poster: rec.Poster,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"Search":       items,
		"totalResults": strconv.Itoa(len(matches)),
		"Response":     "True",
	})
}

func serveDetails(w http.ResponseWriter, records []record, id string) {
	for _, rec := range records {
		if rec.IMDbID != id {
			continue
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"Title":    rec.Title,
			"Year":     rec.Year,
			"Runtime":  rec.Runtime,
			"Genre":    rec.Genre,
			"Director": rec.Director,
			"Poster":   rec.Poster,
			"imdbID":   rec.IMDbID,
			"Response": "True",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"Response": "False",
		"Error":    "Error getting data.",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
