package movies

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"moviehub/internal/auth"
	"moviehub/internal/catalog"
	"moviehub/internal/events"
	"moviehub/internal/search"
	"moviehub/pkg/models"
)

type Handler struct {
	Catalog *catalog.Service
	Search  *search.Orchestrator
	Hub     *events.Hub
}

func NewHandler(catalogSvc *catalog.Service, searchSvc *search.Orchestrator, hub *events.Hub) *Handler {
	return &Handler{Catalog: catalogSvc, Search: searchSvc, Hub: hub}
}

// RegisterPublicRoutes wires the read side. The caller puts OptionalAuth
// in front so a bearer token personalizes results without being required.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/movies", h.getBatch)
	rg.GET("/movies/:id", h.get)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/movies", h.create)
	rg.PUT("/movies/:id", h.update)
	rg.DELETE("/movies/:id", h.remove)
}

func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	page := parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	res, err := h.Search.Search(c.Request.Context(), auth.CurrentUserID(c), query, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) get(c *gin.Context) {
	view, err := h.Catalog.GetMovieForUser(c.Request.Context(), auth.CurrentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// getBatch resolves ?ids=a,b,c to canonical records, silently skipping
// unknown ids.
func (h *Handler) getBatch(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids is required"})
		return
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	items, err := h.Catalog.GetMoviesByIDs(c.Request.Context(), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var draft models.MovieDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	view, err := h.Catalog.CreateCustomMovie(c.Request.Context(), claims.UserID, draft)
	if err != nil {
		respondError(c, err)
		return
	}

	h.emit(events.CatalogEvent{
		Type:    events.TypeCustomCreated,
		UserID:  claims.UserID,
		MovieID: view.ID,
		Title:   view.Title,
	})
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var patch models.MoviePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	view, err := h.Catalog.UpdateMovie(c.Request.Context(), claims.UserID, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	h.emit(events.CatalogEvent{
		Type:    events.TypeMovieUpdated,
		UserID:  claims.UserID,
		MovieID: view.ID,
		Title:   view.Title,
	})
	c.JSON(http.StatusOK, view)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id := c.Param("id")

	// resolve the title first, the event fires after the row is gone
	movie, err := h.Catalog.GetMovie(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Catalog.DeleteMovie(c.Request.Context(), claims.UserID, id); err != nil {
		respondError(c, err)
		return
	}

	h.emit(events.CatalogEvent{
		Type:    events.TypeMovieDeleted,
		UserID:  claims.UserID,
		MovieID: id,
		Title:   movie.Title,
	})
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) emit(ev events.CatalogEvent) {
	if h.Hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	go h.Hub.BroadcastJSON(ev)
}

// respondError maps catalog failure modes onto statuses. The service
// layer owns the classification; handlers just translate.
func respondError(c *gin.Context, err error) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, catalog.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
