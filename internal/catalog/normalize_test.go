package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase words", "the matrix", "The Matrix"},
		{"already normalized", "The Matrix", "The Matrix"},
		{"accents and parens dropped", "Amélie (2001)", "Amlie"},
		{"empty", "", ""},
		{"digits only", "123 456", ""},
		{"colon becomes space", "Blade Runner: 2049", "Blade Runner"},
		{"hyphen becomes space", "Spider-Man", "Spider Man"},
		{"mixed case collapse", "tHE gODFATHER", "The Godfather"},
		{"whitespace runs", "  the   matrix  ", "The Matrix"},
		{"tabs and newlines", "the\tmatrix\nreloaded", "The Matrix Reloaded"},
		{"punctuation soup", "!!!...###", ""},
		{"apostrophe dropped without split", "Ocean's Eleven", "Oceans Eleven"},
		{"unicode stripped", "千と千尋の神隠し", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{
		"the matrix",
		"Amélie (2001)",
		"Blade Runner: 2049",
		"Spider-Man",
		"",
		"123 456",
		"Ocean's Eleven",
	}
	for _, in := range inputs {
		once := NormalizeTitle(in)
		assert.Equal(t, once, NormalizeTitle(once), "normalize(normalize(%q))", in)
	}
}
