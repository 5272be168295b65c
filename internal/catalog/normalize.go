package catalog

import (
	"strings"
	"unicode"
)

// NormalizeTitle turns a raw title into the canonical comparison key
// used for per-user uniqueness and duplicate detection.
//
// The key is lossy: colon and hyphen become spaces,
// every other character that is not an ASCII letter or whitespace is
// dropped, whitespace collapses, and the remaining words are
// Title-cased. "Blade Runner: 2049" and "blade runner 2049" meet at
// the same key, and a title may legitimately collapse to "".
func NormalizeTitle(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == ':' || r == '-':
			b.WriteByte(' ')
		case r == ' ' || unicode.IsSpace(r):
			b.WriteByte(' ')
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
