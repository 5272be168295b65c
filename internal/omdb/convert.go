package omdb

import (
	"strings"

	"github.com/google/uuid"

	"moviehub/internal/catalog"
	"moviehub/pkg/models"
)

// Upstream fields use "N/A" (and occasionally "Not Available") for
// missing data. isMissing folds those to the empty value.
func isMissing(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == "" || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "not available")
}

// ToMovie converts an upstream details record into a canonical movie
// row ready for the catalog store. Unparseable fields become nil rather
// than failing the whole record.
func ToMovie(d *Details) *models.Movie {
	if d == nil {
		return nil
	}
	title := strings.TrimSpace(d.Title)
	return &models.Movie{
		ID:              uuid.NewString(),
		IMDbID:          d.IMDbID,
		Title:           title,
		NormalizedTitle: catalog.NormalizeTitle(title),
		Year:            parseYear(d.Year),
		RuntimeMinutes:  parseRuntime(d.Runtime),
		Genres:          parseList(d.Genre),
		Directors:       parseList(d.Director),
		PosterURL:       cleanField(d.Poster),
		Source:          models.SourceIMDb,
	}
}

// parseYear picks the first 4-digit number in a plausible range out of
// strings like "2010", "2010–2012" or "16 Jul 2010".
func parseYear(raw string) *int {
	if isMissing(raw) {
		return nil
	}
	n := 0
	digits := 0
	flush := func() *int {
		if digits == 4 && n >= 1888 && n <= 2100 {
			v := n
			return &v
		}
		return nil
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			digits++
			continue
		}
		if y := flush(); y != nil {
			return y
		}
		n, digits = 0, 0
	}
	return flush()
}

// parseRuntime pulls the leading integer out of "<n> min" strings.
func parseRuntime(raw string) *int {
	if isMissing(raw) {
		return nil
	}
	n := 0
	seen := false
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	if !seen || n <= 0 {
		return nil
	}
	return &n
}

// parseList splits a comma-separated field ("Action, Sci-Fi") into
// trimmed entries, dropping blanks and sentinels.
func parseList(raw string) []string {
	if isMissing(raw) {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "" || isMissing(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func cleanField(raw string) string {
	if isMissing(raw) {
		return ""
	}
	return strings.TrimSpace(raw)
}
