package history

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
	h := NewHandler(NewRepo(db), svc)

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

func createMovie(t *testing.T, env *testEnv, userID, title string) string {
	t.Helper()
	view, err := env.catalog.CreateCustomMovie(context.Background(), userID, models.MovieDraft{
		Title:          title,
		Year:           2020,
		RuntimeMinutes: 100,
		Genres:         []string{"Drama"},
		Directors:      []string{"Someone"},
	})
	require.NoError(t, err)
	return view.ID
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

func logWatch(t *testing.T, env *testEnv, userID, movieID string, minutes int, note string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, env, http.MethodPost, "/api/history", userID,
		map[string]any{"movie_id": movieID, "minutes_watched": minutes, "note": note})
}

func TestHistoryRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := do(t, env, http.MethodGet, "/api/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistoryValidation(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, "u1")
	movieID := createMovie(t, env, "u1", "Watched")

	w := logWatch(t, env, "u1", "", 30, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = logWatch(t, env, "u1", movieID, -5, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = logWatch(t, env, "u1", "missing", 30, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryLogAndList(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, "u1")
	first := createMovie(t, env, "u1", "First Watch")
	second := createMovie(t, env, "u1", "Second Watch")

	require.Equal(t, http.StatusCreated, logWatch(t, env, "u1", first, 45, "opening act").Code)
	require.Equal(t, http.StatusCreated, logWatch(t, env, "u1", first, 60, "").Code)
	require.Equal(t, http.StatusCreated, logWatch(t, env, "u1", second, 30, "").Code)

	w := do(t, env, http.MethodGet, "/api/history", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total        int                 `json:"total"`
		TotalMinutes int                 `json:"total_minutes"`
		Items        []models.WatchEvent `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 135, body.TotalMinutes)
	require.Len(t, body.Items, 3)
	// newest first
	assert.Equal(t, second, body.Items[0].MovieID)

	// narrow by movie
	w = do(t, env, http.MethodGet, "/api/history?movie_id="+first, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	for _, item := range body.Items {
		assert.Equal(t, first, item.MovieID)
	}
}

func TestHistoryIsPerUser(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, "u1")
	seedUser(t, env.db, "u2")
	movieID := createMovie(t, env, "u1", "Shared World")

	require.Equal(t, http.StatusCreated, logWatch(t, env, "u1", movieID, 90, "").Code)

	w := do(t, env, http.MethodGet, "/api/history", "u2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total        int `json:"total"`
		TotalMinutes int `json:"total_minutes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Total)
	assert.Equal(t, 0, body.TotalMinutes)
}
