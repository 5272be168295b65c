package omdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/models"
)

func TestParseYear(t *testing.T) {
	cases := []struct {
		raw  string
		want int // 0 means nil
	}{
		{"2010", 2010},
		{"2010–2012", 2010},
		{"16 Jul 2010", 2010},
		{"1888", 1888},
		{"2100", 2100},
		{"1887", 0},
		{"2101", 0},
		{"N/A", 0},
		{"", 0},
		{"12345", 0},
		{"year 1999!", 1999},
	}
	for _, tc := range cases {
		got := parseYear(tc.raw)
		if tc.want == 0 {
			assert.Nil(t, got, "raw=%q", tc.raw)
			continue
		}
		require.NotNil(t, got, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, *got, "raw=%q", tc.raw)
	}
}

func TestParseRuntime(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"148 min", 148},
		{"90 min", 90},
		{"1 hr 30 min", 1},
		{"min 60", 60},
		{"N/A", 0},
		{"not available", 0},
		{"", 0},
		{"0 min", 0},
	}
	for _, tc := range cases {
		got := parseRuntime(tc.raw)
		if tc.want == 0 {
			assert.Nil(t, got, "raw=%q", tc.raw)
			continue
		}
		require.NotNil(t, got, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, *got, "raw=%q", tc.raw)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"Action", "Adventure", "Sci-Fi"}, parseList("Action, Adventure, Sci-Fi"))
	assert.Equal(t, []string{"Christopher Nolan"}, parseList("Christopher Nolan"))
	assert.Equal(t, []string{"Lana Wachowski", "Lilly Wachowski"}, parseList(" Lana Wachowski ,  Lilly Wachowski "))
	assert.Nil(t, parseList("N/A"))
	assert.Nil(t, parseList(""))
	assert.Nil(t, parseList(" , ,"))
}

func TestToMovie(t *testing.T) {
	d := &Details{
		IMDbID:   "tt1375666",
		Title:    "  Inception ",
		Year:     "2010",
		Runtime:  "148 min",
		Genre:    "Action, Sci-Fi",
		Director: "Christopher Nolan",
		Poster:   "https://img.example/inception.jpg",
	}

	m := ToMovie(d)
	require.NotNil(t, m)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "tt1375666", m.IMDbID)
	assert.Equal(t, "Inception", m.Title)
	assert.Equal(t, "Inception", m.NormalizedTitle)
	require.NotNil(t, m.Year)
	assert.Equal(t, 2010, *m.Year)
	require.NotNil(t, m.RuntimeMinutes)
	assert.Equal(t, 148, *m.RuntimeMinutes)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, m.Genres)
	assert.Equal(t, []string{"Christopher Nolan"}, m.Directors)
	assert.Equal(t, models.SourceIMDb, m.Source)
}

func TestToMovieSentinels(t *testing.T) {
	m := ToMovie(&Details{
		IMDbID:   "tt0000001",
		Title:    "Obscurity",
		Year:     "N/A",
		Runtime:  "N/A",
		Genre:    "N/A",
		Director: "N/A",
		Poster:   "N/A",
	})

	require.NotNil(t, m)
	assert.Nil(t, m.Year)
	assert.Nil(t, m.RuntimeMinutes)
	assert.Nil(t, m.Genres)
	assert.Nil(t, m.Directors)
	assert.Empty(t, m.PosterURL)

	assert.Nil(t, ToMovie(nil))
}
