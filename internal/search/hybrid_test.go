package search

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/internal/cache"
	"moviehub/internal/catalog"
	"moviehub/internal/omdb"
	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

type fakeUpstream struct {
	page    *omdb.SearchPage
	err     error
	details map[string]*omdb.Details
}

func (f *fakeUpstream) SearchTitles(ctx context.Context, query string, page int) (*omdb.SearchPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.page == nil {
		return &omdb.SearchPage{}, nil
	}
	return f.page, nil
}

func (f *fakeUpstream) GetDetails(ctx context.Context, imdbID string) (*omdb.Details, error) {
	return f.details[imdbID], nil
}

func newOrchestrator(t *testing.T, up cache.Upstream) (*Orchestrator, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`PRAGMA foreign_keys = ON;`)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	repo := catalog.NewRepo(db)
	return NewOrchestrator(cache.NewService(up, repo, time.Hour), catalog.NewService(repo)), db
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "user-"+id, id+"@example.com")
	require.NoError(t, err)
}

func customDraft(title string) models.MovieDraft {
	return models.MovieDraft{
		Title:          title,
		Year:           2020,
		RuntimeMinutes: 100,
		Genres:         []string{"Drama"},
		Directors:      []string{"Someone"},
	}
}

func duneUpstream() *fakeUpstream {
	return &fakeUpstream{
		page: &omdb.SearchPage{
			Items: []omdb.SearchItem{
				{IMDbID: "tt1160419", Title: "Dune"},
				{IMDbID: "tt15239678", Title: "Dune: Part Two"},
			},
			Total: 37,
		},
		details: map[string]*omdb.Details{
			"tt1160419":  {IMDbID: "tt1160419", Title: "Dune", Year: "2021", Runtime: "155 min"},
			"tt15239678": {IMDbID: "tt15239678", Title: "Dune: Part Two", Year: "2024"},
		},
	}
}

func TestSearchAnonymous(t *testing.T) {
	o, _ := newOrchestrator(t, duneUpstream())

	res, err := o.Search(context.Background(), "", "dune", 1)
	require.NoError(t, err)
	assert.Equal(t, 37, res.Total)
	assert.False(t, res.IncludesCustomMovies)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Dune", res.Items[0].Title)
	assert.Equal(t, models.SourceIMDb, res.Items[0].Source)
	assert.False(t, res.Items[0].IsFavorite)
}

func TestSearchPrependsCustomAndDedupes(t *testing.T) {
	o, db := newOrchestrator(t, duneUpstream())
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := o.Catalog.CreateCustomMovie(ctx, "u1", customDraft("Dune"))
	require.NoError(t, err)

	res, err := o.Search(ctx, "u1", "dune", 1)
	require.NoError(t, err)

	assert.True(t, res.IncludesCustomMovies)
	assert.Equal(t, 38, res.Total, "total is upstream count plus custom matches")

	// custom entry first, the identically titled upstream row dropped
	require.Len(t, res.Items, 2)
	assert.Equal(t, models.SourceCustom, res.Items[0].Source)
	assert.Equal(t, "Dune", res.Items[0].Title)
	assert.Equal(t, models.SourceIMDb, res.Items[1].Source)
	assert.Equal(t, "Dune: Part Two", res.Items[1].Title)
}

func TestSearchDedupeIsCaseInsensitive(t *testing.T) {
	up := duneUpstream()
	up.page.Items[0].Title = "DUNE"
	up.details["tt1160419"].Title = "DUNE"
	o, db := newOrchestrator(t, up)
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := o.Catalog.CreateCustomMovie(ctx, "u1", customDraft("dune"))
	require.NoError(t, err)

	res, err := o.Search(ctx, "u1", "dune", 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, models.SourceCustom, res.Items[0].Source)
	assert.Equal(t, "Dune: Part Two", res.Items[1].Title)
}

func TestSearchAuthenticatedWithoutCustomMatches(t *testing.T) {
	o, db := newOrchestrator(t, duneUpstream())
	seedUser(t, db, "u1")
	ctx := context.Background()

	_, err := o.Catalog.CreateCustomMovie(ctx, "u1", customDraft("Completely Different"))
	require.NoError(t, err)

	res, err := o.Search(ctx, "u1", "dune", 1)
	require.NoError(t, err)
	assert.False(t, res.IncludesCustomMovies)
	assert.Equal(t, 37, res.Total)
	assert.Len(t, res.Items, 2)
}

func TestSearchUpstreamFailurePropagates(t *testing.T) {
	o, _ := newOrchestrator(t, &fakeUpstream{err: errors.New("connection refused")})

	_, err := o.Search(context.Background(), "", "dune", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUpstreamUnavailable)
}
