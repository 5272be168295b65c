package library

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/internal/auth"
	"moviehub/internal/catalog"
	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

type testEnv struct {
	router  *gin.Engine
	catalog *catalog.Service
	db      *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`PRAGMA foreign_keys = ON;`)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })

	svc := catalog.NewService(catalog.NewRepo(db))
	h := NewHandler(svc, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: id, Username: "user-" + id})
		}
	})
	h.RegisterRoutes(r.Group("/api"))

	return &testEnv{router: r, catalog: svc, db: db}
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "user-"+id, id+"@example.com")
	require.NoError(t, err)
}

func createMovie(t *testing.T, env *testEnv, userID, title string) *models.EffectiveMovie {
	t.Helper()
	view, err := env.catalog.CreateCustomMovie(context.Background(), userID, models.MovieDraft{
		Title:          title,
		Year:           2020,
		RuntimeMinutes: 100,
		Genres:         []string{"Drama"},
		Directors:      []string{"Someone"},
	})
	require.NoError(t, err)
	return view
}

func do(t *testing.T, env *testEnv, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf []byte
	if body != nil {
		var err error
		buf, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestLibraryRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := do(t, env, http.MethodGet, "/api/library", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLibraryListsTouchedMovies(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, "u1")

	first := createMovie(t, env, "u1", "First")
	createMovie(t, env, "u1", "Second")

	w := do(t, env, http.MethodPut, "/api/library/"+first.ID+"/favorite", "u1", map[string]bool{"favorite": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, env, http.MethodGet, "/api/library", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total int                     `json:"total"`
		Items []models.EffectiveMovie `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)

	w = do(t, env, http.MethodGet, "/api/library?favorites=true", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "First", body.Items[0].Title)
	assert.True(t, body.Items[0].IsFavorite)
}

func TestFavoriteUnknownMovie(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, "u1")

	w := do(t, env, http.MethodPut, "/api/library/missing/favorite", "u1", map[string]bool{"favorite": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnfavoriteKeepsLibraryEntry(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, "u1")
	movie := createMovie(t, env, "u1", "Sticky")

	w := do(t, env, http.MethodPut, "/api/library/"+movie.ID+"/favorite", "u1", map[string]bool{"favorite": true})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, env, http.MethodPut, "/api/library/"+movie.ID+"/favorite", "u1", map[string]bool{"favorite": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, env, http.MethodGet, "/api/library?favorites=true", "u1", nil)
	var favs struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &favs))
	assert.Equal(t, 0, favs.Total)

	// the movie stays in the library, only the flag flips
	w = do(t, env, http.MethodGet, "/api/library", "u1", nil)
	var all struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, 1, all.Total)
}
