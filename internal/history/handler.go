package history

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"moviehub/internal/auth"
	"moviehub/internal/catalog"
	"moviehub/pkg/models"
)

type Handler struct {
	Repo    *Repo
	Catalog *catalog.Service
}

func NewHandler(repo *Repo, catalogSvc *catalog.Service) *Handler {
	return &Handler{Repo: repo, Catalog: catalogSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.list)
	rg.POST("/history", h.add)
}

type addReq struct {
	MovieID        string `json:"movie_id"`
	MinutesWatched int    `json:"minutes_watched"`
	Note           string `json:"note,omitempty"`
}

func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	movieID := strings.TrimSpace(req.MovieID)
	if movieID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movie_id required"})
		return
	}
	if req.MinutesWatched < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes_watched must be >= 0"})
		return
	}

	if _, err := h.Catalog.GetMovie(c.Request.Context(), movieID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	entry, err := h.Repo.Add(c.Request.Context(), models.WatchEvent{
		UserID:         claims.UserID,
		MovieID:        movieID,
		MinutesWatched: req.MinutesWatched,
		Note:           strings.TrimSpace(req.Note),
		At:             time.Now().UTC(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	movieID := strings.TrimSpace(c.Query("movie_id"))
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, movieID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	minutes, err := h.Repo.TotalMinutes(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":         total,
		"total_minutes": minutes,
		"limit":         limit,
		"offset":        offset,
		"items":         items,
	})
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
