package catalog

import (
	"sort"
	"strings"

	"moviehub/pkg/models"
)

// Fuzzy matching for the hybrid search path. Scoring runs on
// normalized titles so punctuation and casing differences cost
// nothing.
const (
	fuzzyThreshold  = 0.3
	maxFuzzyMatches = 5
)

// rankByTitle scores candidates against the query, drops everything
// below the threshold and returns at most limit movies ordered by
// score, ties broken by most recent update.
func rankByTitle(query string, candidates []models.Movie, limit int) []models.Movie {
	q := strings.ToLower(NormalizeTitle(query))
	if q == "" {
		return nil
	}

	type scored struct {
		m     models.Movie
		score float64
	}

	matches := make([]scored, 0, len(candidates))
	for _, m := range candidates {
		s := titleScore(q, strings.ToLower(m.NormalizedTitle))
		if s >= fuzzyThreshold {
			matches = append(matches, scored{m: m, score: s})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].m.UpdatedAt.After(matches[j].m.UpdatedAt)
	})

	if limit <= 0 || limit > maxFuzzyMatches {
		limit = maxFuzzyMatches
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]models.Movie, 0, len(matches))
	for _, s := range matches {
		out = append(out, s.m)
	}
	return out
}

// titleScore is 1 for a substring hit, otherwise the trigram
// similarity of the two strings. Inputs are expected lowercase.
func titleScore(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if strings.Contains(candidate, query) {
		return 1
	}
	return trigramSimilarity(query, candidate)
}

// trigramSimilarity is Jaccard similarity over 3-gram sets of the
// padded inputs, in [0, 1].
func trigramSimilarity(a, b string) float64 {
	ga := trigrams(a)
	gb := trigrams(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}

	common := 0
	for g := range ga {
		if _, ok := gb[g]; ok {
			common++
		}
	}
	union := len(ga) + len(gb) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

func trigrams(s string) map[string]struct{} {
	padded := "  " + s + " "
	out := make(map[string]struct{}, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		out[padded[i:i+3]] = struct{}{}
	}
	return out
}
