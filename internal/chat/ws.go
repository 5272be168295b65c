package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"moviehub/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type incomingMessage struct {
	Text string `json:"text"`
}

// HistoryHandler returns the room's retained messages without joining.
func HistoryHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		movieID := strings.TrimSpace(c.Param("movie_id"))
		if movieID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "movie id is required"})
			return
		}

		c.JSON(http.StatusOK, hub.History(movieID))
	}
}

// WSHandler joins the caller to a movie's discussion room. The route
// sits behind AuthMiddleware, so messages always carry the account's
// username rather than whatever the client claims.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		movieID := strings.TrimSpace(c.Param("movie_id"))
		if movieID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "movie id is required"})
			return
		}

		claims := auth.MustGetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		user := claims.Username

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		history := hub.Join(movieID, ws, user)
		for _, msg := range history {
			_ = ws.WriteJSON(msg)
		}

		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				break
			}

			// accept either {"text":"..."} or a bare line
			var incoming incomingMessage
			text := ""
			if err := json.Unmarshal(payload, &incoming); err == nil {
				text = incoming.Text
			} else {
				text = string(payload)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			hub.Broadcast(Message{
				Type:    "message",
				MovieID: movieID,
				User:    user,
				Text:    text,
				At:      time.Now().UTC(),
			})
		}

		hub.Leave(movieID, ws)
	}
}
