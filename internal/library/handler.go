package library

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moviehub/internal/auth"
	"moviehub/internal/catalog"
	"moviehub/internal/events"
)

// Handler exposes the per-user library: every movie the user has
// touched (favorited, overridden or created), with overrides applied.
type Handler struct {
	Catalog *catalog.Service
	Hub     *events.Hub
}

func NewHandler(catalogSvc *catalog.Service, hub *events.Hub) *Handler {
	return &Handler{Catalog: catalogSvc, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library", h.list)
	rg.PUT("/library/:movie_id/favorite", h.setFavorite)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	favoritesOnly := c.Query("favorites") == "true"
	items, err := h.Catalog.ListUserMovies(c.Request.Context(), claims.UserID, favoritesOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"items": items,
	})
}

type favoriteReq struct {
	Favorite bool `json:"favorite"`
}

func (h *Handler) setFavorite(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req favoriteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	movieID := c.Param("movie_id")
	if err := h.Catalog.SetFavorite(c.Request.Context(), claims.UserID, movieID, req.Favorite); err != nil {
		respondError(c, err)
		return
	}

	if h.Hub != nil {
		evType := events.TypeFavorite
		if !req.Favorite {
			evType = events.TypeUnfavorite
		}
		ev := events.CatalogEvent{
			Type:     evType,
			UserID:   claims.UserID,
			MovieID:  movieID,
			Favorite: req.Favorite,
			At:       time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"movie_id": movieID, "favorite": req.Favorite})
}

func respondError(c *gin.Context, err error) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, catalog.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
