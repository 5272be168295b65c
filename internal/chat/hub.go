package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHistorySize = 50

// Message is one chat line in a movie's discussion room. Join/leave
// notices share the shape with an empty text.
type Message struct {
	Type    string    `json:"type"`
	MovieID string    `json:"movie_id"`
	User    string    `json:"user"`
	Text    string    `json:"text,omitempty"`
	At      time.Time `json:"at"`
}

type room struct {
	connections map[*websocket.Conn]string
	history     []Message
}

// Hub keeps one lazily created room per movie with a bounded message
// history replayed to late joiners.
type Hub struct {
	mu          sync.Mutex
	rooms       map[string]*room
	historySize int
}

func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Hub{
		rooms:       make(map[string]*room),
		historySize: historySize,
	}
}

// Join registers the connection in the movie's room and returns the
// history snapshot to replay.
func (h *Hub) Join(movieID string, ws *websocket.Conn, user string) []Message {
	var history []Message
	h.mu.Lock()
	r := h.roomLocked(movieID)
	r.connections[ws] = user
	history = append(history, r.history...)
	h.mu.Unlock()

	h.Broadcast(Message{
		Type:    "user_join",
		MovieID: movieID,
		User:    user,
		At:      time.Now().UTC(),
	})

	return history
}

func (h *Hub) Leave(movieID string, ws *websocket.Conn) {
	var user string
	h.mu.Lock()
	if r, ok := h.rooms[movieID]; ok {
		user = r.connections[ws]
		delete(r.connections, ws)
	}
	h.mu.Unlock()

	_ = ws.Close()

	if user != "" {
		h.Broadcast(Message{
			Type:    "user_leave",
			MovieID: movieID,
			User:    user,
			At:      time.Now().UTC(),
		})
	}
}

func (h *Hub) Broadcast(msg Message) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[msg.MovieID]
	if !ok {
		return
	}

	// only real messages count against the history window
	if msg.Type == "message" {
		r.history = append(r.history, msg)
		if len(r.history) > h.historySize {
			r.history = r.history[len(r.history)-h.historySize:]
		}
	}

	for ws := range r.connections {
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(r.connections, ws)
		}
	}
}

func (h *Hub) History(movieID string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[movieID]; ok {
		return append([]Message(nil), r.history...)
	}
	return nil
}

func (h *Hub) User(movieID string, ws *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[movieID]; ok {
		return r.connections[ws]
	}
	return ""
}

func (h *Hub) roomLocked(movieID string) *room {
	r, ok := h.rooms[movieID]
	if !ok {
		r = &room{connections: make(map[*websocket.Conn]string)}
		h.rooms[movieID] = r
	}
	return r
}
