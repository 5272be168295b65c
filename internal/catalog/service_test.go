package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/models"
)

func validDraft(title string) models.MovieDraft {
	return models.MovieDraft{
		Title:          title,
		Year:           2020,
		RuntimeMinutes: 100,
		Genres:         []string{"Drama"},
		Directors:      []string{"Someone"},
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreateCustomMovieValidation(t *testing.T) {
	svc := NewService(NewRepo(newTestDB(t)))
	ctx := context.Background()

	cases := []struct {
		name  string
		draft models.MovieDraft
		field string
	}{
		{"short title", func() models.MovieDraft { d := validDraft("ab"); return d }(), "title"},
		{"year too early", func() models.MovieDraft { d := validDraft("Okay"); d.Year = 1800; return d }(), "year"},
		{"year too late", func() models.MovieDraft { d := validDraft("Okay"); d.Year = 2200; return d }(), "year"},
		{"zero runtime", func() models.MovieDraft { d := validDraft("Okay"); d.RuntimeMinutes = 0; return d }(), "runtime_minutes"},
		{"no genres", func() models.MovieDraft { d := validDraft("Okay"); d.Genres = nil; return d }(), "genres"},
		{"blank directors", func() models.MovieDraft { d := validDraft("Okay"); d.Directors = []string{" "}; return d }(), "directors"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCustomMovie(ctx, "u1", tc.draft)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCreateCustomMovieClaimsEffectiveTitle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepo(db))
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	created, err := svc.CreateCustomMovie(ctx, "u1", validDraft("Dune"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceCustom, created.Source)
	assert.Equal(t, "Dune", created.Title)

	// "DUNE!" normalizes to the same effective title
	_, err = svc.CreateCustomMovie(ctx, "u1", validDraft("DUNE!"))
	assert.ErrorIs(t, err, ErrConflict)

	// uniqueness is per user
	_, err = svc.CreateCustomMovie(ctx, "u2", validDraft("Dune"))
	assert.NoError(t, err)
}

func TestUpdateMovieOwnerEditsCanonical(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepo(db))
	ctx := context.Background()
	seedUser(t, db, "u1")

	created, err := svc.CreateCustomMovie(ctx, "u1", validDraft("My Film"))
	require.NoError(t, err)

	view, err := svc.UpdateMovie(ctx, "u1", created.ID, models.MoviePatch{
		Title: strPtr("My Film Extended"),
		Year:  intPtr(2021),
	})
	require.NoError(t, err)
	assert.Equal(t, "My Film Extended", view.Title)
	require.NotNil(t, view.Year)
	assert.Equal(t, 2021, *view.Year)

	// the canonical row changed; no overrides involved
	assert.Nil(t, view.Overrides.Title)
	canonical, err := svc.GetMovie(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Film Extended", canonical.Title)

	// the rename re-claimed the effective title
	link, err := svc.Repo.GetLink(ctx, "u1", created.ID)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "My Film Extended", link.EffectiveTitle)
}

func TestUpdateMovieNonOwnerWritesOverrides(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo)
	ctx := context.Background()
	seedUser(t, db, "u1")

	upstream := seedUpstreamMovie(t, repo, "tt0001", "Dune")

	view, err := svc.UpdateMovie(ctx, "u1", upstream.ID, models.MoviePatch{
		Title: strPtr("Dune Remastered"),
		Year:  intPtr(2022),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune Remastered", view.Title)
	require.NotNil(t, view.Year)
	assert.Equal(t, 2022, *view.Year)
	require.NotNil(t, view.Overrides.Title)
	assert.Equal(t, "Dune Remastered", *view.Overrides.Title)

	// the canonical record is untouched, other callers still see it
	canonical, err := svc.GetMovie(ctx, upstream.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", canonical.Title)
	require.NotNil(t, canonical.Year)
	assert.Equal(t, 2020, *canonical.Year)

	anon, err := svc.GetMovieForUser(ctx, "", upstream.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", anon.Title)
}

func TestUpdateMoviePosterIsImmutable(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo)
	seedUser(t, db, "u1")

	upstream := seedUpstreamMovie(t, repo, "tt0001", "Dune")

	_, err := svc.UpdateMovie(context.Background(), "u1", upstream.ID, models.MoviePatch{
		PosterURL: strPtr("https://example.com/other.jpg"),
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "poster_url", ve.Field)
}

func TestUpdateMovieOverrideRenameRespectsUniqueness(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo)
	ctx := context.Background()
	seedUser(t, db, "u1")

	_, err := svc.CreateCustomMovie(ctx, "u1", validDraft("Dune"))
	require.NoError(t, err)

	upstream := seedUpstreamMovie(t, repo, "tt0001", "Something Else")
	_, err = svc.UpdateMovie(ctx, "u1", upstream.ID, models.MoviePatch{Title: strPtr("Dune")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSetFavoriteClaimsTitleOnFirstTouch(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo)
	ctx := context.Background()
	seedUser(t, db, "u1")

	_, err := svc.CreateCustomMovie(ctx, "u1", validDraft("Dune"))
	require.NoError(t, err)

	clash := seedUpstreamMovie(t, repo, "tt0001", "Dune")
	err = svc.SetFavorite(ctx, "u1", clash.ID, true)
	assert.ErrorIs(t, err, ErrConflict, "favoriting claims the title, so it collides")

	other := seedUpstreamMovie(t, repo, "tt0002", "Dune: Part Two")
	require.NoError(t, svc.SetFavorite(ctx, "u1", other.ID, true))

	favs, err := svc.ListUserMovies(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, other.ID, favs[0].ID)
	assert.True(t, favs[0].IsFavorite)

	// unfavorite keeps the link (and its title claim)
	require.NoError(t, svc.SetFavorite(ctx, "u1", other.ID, false))
	all, err := svc.ListUserMovies(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	favs, err = svc.ListUserMovies(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestSetFavoriteMissingMovie(t *testing.T) {
	svc := NewService(NewRepo(newTestDB(t)))
	err := svc.SetFavorite(context.Background(), "u1", "nope", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMovieOwnerRemovesForEveryone(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	created, err := svc.CreateCustomMovie(ctx, "u1", validDraft("Shared Film"))
	require.NoError(t, err)
	require.NoError(t, svc.SetFavorite(ctx, "u2", created.ID, true))

	require.NoError(t, svc.DeleteMovie(ctx, "u1", created.ID))

	_, err = svc.GetMovie(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	u2, err := svc.ListUserMovies(ctx, "u2", false)
	require.NoError(t, err)
	assert.Empty(t, u2)

	// gone from the owner's fuzzy candidates too
	hits, err := svc.SearchCustomMovies(ctx, "u1", "shared film")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// title is free for both users again
	_, err = svc.CreateCustomMovie(ctx, "u2", validDraft("Shared Film"))
	assert.NoError(t, err)
}

func TestDeleteMovieNonOwnerDetaches(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo)
	ctx := context.Background()
	seedUser(t, db, "u1")

	upstream := seedUpstreamMovie(t, repo, "tt0001", "Heat")
	require.NoError(t, svc.SetFavorite(ctx, "u1", upstream.ID, true))

	require.NoError(t, svc.DeleteMovie(ctx, "u1", upstream.ID))

	// the canonical record survives for everyone else
	canonical, err := svc.GetMovie(ctx, upstream.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heat", canonical.Title)

	// nothing left to detach
	err = svc.DeleteMovie(ctx, "u1", upstream.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchCustomMoviesFuzzy(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepo(db))
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	_, err := svc.CreateCustomMovie(ctx, "u1", validDraft("Dune Fan Cut"))
	require.NoError(t, err)
	_, err = svc.CreateCustomMovie(ctx, "u1", validDraft("Blade Runner Sketches"))
	require.NoError(t, err)
	_, err = svc.CreateCustomMovie(ctx, "u2", validDraft("Dune Home Edit"))
	require.NoError(t, err)

	got, err := svc.SearchCustomMovies(ctx, "u1", "dune")
	require.NoError(t, err)
	require.Len(t, got, 1, "only the caller's own movies match")
	assert.Equal(t, "Dune Fan Cut", got[0].Title)
	assert.Equal(t, models.SourceCustom, got[0].Source)
}
