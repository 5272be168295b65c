package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// one connection, or every pooled conn gets its own empty :memory: db
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`PRAGMA foreign_keys = ON;`)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "user-"+id, id+"@example.com")
	require.NoError(t, err)
}

func seedUpstreamMovie(t *testing.T, repo *Repo, imdbID, title string) *models.Movie {
	t.Helper()
	year := 2020
	runtime := 120
	stored, err := repo.UpsertByIMDbID(context.Background(), &models.Movie{
		ID:              uuid.NewString(),
		IMDbID:          imdbID,
		Title:           title,
		NormalizedTitle: NormalizeTitle(title),
		Year:            &year,
		RuntimeMinutes:  &runtime,
		Genres:          []string{"Drama"},
		Directors:       []string{"Someone"},
		PosterURL:       "https://example.com/" + imdbID + ".jpg",
		Source:          models.SourceIMDb,
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	return stored
}

func ageMovie(t *testing.T, db *sql.DB, movieID, modifier string) {
	t.Helper()
	_, err := db.Exec(`UPDATE movies SET updated_at = datetime('now', ?) WHERE id = ?`, modifier, movieID)
	require.NoError(t, err)
}

func TestUpsertByIMDbIDInsertThenRefresh(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	first := seedUpstreamMovie(t, repo, "tt0001", "Old Title")
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.SourceIMDb, first.Source)
	assert.Equal(t, "https://example.com/tt0001.jpg", first.PosterURL)

	ageMovie(t, db, first.ID, "-2 hours")
	aged, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, aged)

	year := 2021
	refreshed, err := repo.UpsertByIMDbID(ctx, &models.Movie{
		ID:              uuid.NewString(), // ignored on conflict
		IMDbID:          "tt0001",
		Title:           "New Title",
		NormalizedTitle: NormalizeTitle("New Title"),
		Year:            &year,
		PosterURL:       "https://example.com/other.jpg",
		Source:          models.SourceIMDb,
	})
	require.NoError(t, err)
	require.NotNil(t, refreshed)

	// identity survives the refresh, fields do not
	assert.Equal(t, first.ID, refreshed.ID)
	assert.Equal(t, "New Title", refreshed.Title)
	require.NotNil(t, refreshed.Year)
	assert.Equal(t, 2021, *refreshed.Year)
	assert.Nil(t, refreshed.RuntimeMinutes)

	// poster was set at creation and stays
	assert.Equal(t, "https://example.com/tt0001.jpg", refreshed.PosterURL)

	// the refresh bumped the freshness clock
	assert.True(t, refreshed.UpdatedAt.After(aged.UpdatedAt))
}

func TestGetByIDExcludesSoftDeleted(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	m := &models.Movie{
		ID:              uuid.NewString(),
		Title:           "My Film",
		NormalizedTitle: NormalizeTitle("My Film"),
		Source:          models.SourceCustom,
		CreatedBy:       "u1",
	}
	l := &models.UserMovieLink{UserID: "u1", MovieID: m.ID, EffectiveTitle: m.NormalizedTitle}
	require.NoError(t, repo.InsertCustomWithLink(ctx, m, l))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, repo.SoftDeleteMovie(ctx, m.ID))

	got, err = repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	movies, err := repo.GetByIDs(ctx, []string{m.ID})
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestInsertCustomWithLinkIsAtomic(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	m1 := &models.Movie{
		ID: uuid.NewString(), Title: "Dune", NormalizedTitle: "Dune",
		Source: models.SourceCustom, CreatedBy: "u1",
	}
	require.NoError(t, repo.InsertCustomWithLink(ctx, m1,
		&models.UserMovieLink{UserID: "u1", MovieID: m1.ID, EffectiveTitle: "Dune"}))

	// second create collides on the unique index; the movie insert from
	// the same transaction must be rolled back with it
	m2 := &models.Movie{
		ID: uuid.NewString(), Title: "dune", NormalizedTitle: "Dune",
		Source: models.SourceCustom, CreatedBy: "u1",
	}
	err := repo.InsertCustomWithLink(ctx, m2,
		&models.UserMovieLink{UserID: "u1", MovieID: m2.ID, EffectiveTitle: "Dune"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM movies`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSaveLinkTranslatesConstraint(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	a := seedUpstreamMovie(t, repo, "tt0001", "Dune")
	b := seedUpstreamMovie(t, repo, "tt0002", "Dune Part Two")

	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: a.ID, EffectiveTitle: "Dune",
	}))

	// same user, different movie, same effective title modulo case
	err := repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: b.ID, EffectiveTitle: "dune",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSaveLinkUpsertsInPlace(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	m := seedUpstreamMovie(t, repo, "tt0001", "Heat")

	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: m.ID, EffectiveTitle: "Heat",
	}))

	title := "Heat Director's Cut"
	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: m.ID, IsFavorite: true,
		TitleOverride: &title, EffectiveTitle: NormalizeTitle(title),
	}))

	got, err := repo.GetLink(ctx, "u1", m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsFavorite)
	require.NotNil(t, got.TitleOverride)
	assert.Equal(t, title, *got.TitleOverride)
	assert.Equal(t, "Heat Directors Cut", got.EffectiveTitle)
}

func TestDeleteLinkFreesEffectiveTitle(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	a := seedUpstreamMovie(t, repo, "tt0001", "Dune")
	b := seedUpstreamMovie(t, repo, "tt0002", "Dune Part Two")

	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: a.ID, EffectiveTitle: "Dune",
	}))

	ok, err := repo.DeleteLink(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteLink(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// the title is free again
	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: b.ID, EffectiveTitle: "Dune",
	}))
}

func TestSoftDeleteCascadesToLinks(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	m := &models.Movie{
		ID: uuid.NewString(), Title: "My Film", NormalizedTitle: "My Film",
		Source: models.SourceCustom, CreatedBy: "u1",
	}
	require.NoError(t, repo.InsertCustomWithLink(ctx, m,
		&models.UserMovieLink{UserID: "u1", MovieID: m.ID, EffectiveTitle: "My Film"}))
	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u2", MovieID: m.ID, EffectiveTitle: "My Film",
	}))

	require.NoError(t, repo.SoftDeleteMovie(ctx, m.ID))

	for _, user := range []string{"u1", "u2"} {
		l, err := repo.GetLink(ctx, user, m.ID)
		require.NoError(t, err)
		assert.Nil(t, l, "link for %s should be gone", user)

		hit, err := repo.FindLinkByEffectiveTitle(ctx, user, "my film", "")
		require.NoError(t, err)
		assert.Nil(t, hit, "effective title should be free for %s", user)
	}

	// both users can claim the title again
	m2 := &models.Movie{
		ID: uuid.NewString(), Title: "My Film", NormalizedTitle: "My Film",
		Source: models.SourceCustom, CreatedBy: "u1",
	}
	require.NoError(t, repo.InsertCustomWithLink(ctx, m2,
		&models.UserMovieLink{UserID: "u1", MovieID: m2.ID, EffectiveTitle: "My Film"}))
}

func TestListLinksOrderAndFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	a := seedUpstreamMovie(t, repo, "tt0001", "Alpha")
	b := seedUpstreamMovie(t, repo, "tt0002", "Beta")
	c := seedUpstreamMovie(t, repo, "tt0003", "Gamma")

	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{UserID: "u1", MovieID: a.ID, EffectiveTitle: "Alpha", IsFavorite: true}))
	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{UserID: "u1", MovieID: b.ID, EffectiveTitle: "Beta"}))
	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{UserID: "u1", MovieID: c.ID, EffectiveTitle: "Gamma", IsFavorite: true}))

	// stagger updated_at so the order is deterministic
	for i, movieID := range []string{a.ID, b.ID, c.ID} {
		_, err := db.Exec(`UPDATE user_movies SET updated_at = datetime('now', ?) WHERE movie_id = ?`,
			fmt.Sprintf("-%d hours", 3-i), movieID)
		require.NoError(t, err)
	}

	links, err := repo.ListLinks(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, c.ID, links[0].MovieID) // most recent first
	assert.Equal(t, b.ID, links[1].MovieID)
	assert.Equal(t, a.ID, links[2].MovieID)

	favs, err := repo.ListLinks(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, c.ID, favs[0].MovieID)
	assert.Equal(t, a.ID, favs[1].MovieID)
}

func TestFindLinkByEffectiveTitleExclude(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	m := seedUpstreamMovie(t, repo, "tt0001", "Dune")
	require.NoError(t, repo.SaveLink(ctx, &models.UserMovieLink{
		UserID: "u1", MovieID: m.ID, EffectiveTitle: "Dune",
	}))

	hit, err := repo.FindLinkByEffectiveTitle(ctx, "u1", "DUNE", "")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, m.ID, hit.MovieID)

	// editing the same movie must not collide with itself
	hit, err = repo.FindLinkByEffectiveTitle(ctx, "u1", "DUNE", m.ID)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestListStaleIMDb(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	fresh := seedUpstreamMovie(t, repo, "tt0001", "Fresh")
	stale := seedUpstreamMovie(t, repo, "tt0002", "Stale")
	ageMovie(t, db, stale.ID, "-26 hours")

	got, err := repo.ListStaleIMDb(ctx, 24*time.Hour, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
	assert.NotEqual(t, fresh.ID, got[0].ID)
}
