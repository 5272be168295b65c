package notify

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"

	"moviehub/pkg/models"
)

const (
	RegisterMessageType  = "register"
	RefreshedMessageType = "movie_refreshed"
)

// RegisterMessage is what a subscriber sends to start receiving
// refresh announcements at its source address.
type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// RefreshedMessage announces that a canonical record was re-fetched
// from the upstream service.
type RefreshedMessage struct {
	Type    string `json:"type"`
	MovieID string `json:"movie_id"`
	IMDbID  string `json:"imdb_id"`
	Title   string `json:"title"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Server listens for register datagrams and pushes refresh
// announcements back to every registered subscriber.
type Server struct {
	addr     string
	registry *Registry
	logger   *log.Logger

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{addr: addr, registry: registry, logger: logger}
}

// Run binds the UDP socket and consumes register messages until Close.
func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Printf("[notify] udp listening on %s", conn.LocalAddr())

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Printf("[notify] invalid message from %s: %v", addr, err)
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, addr)
		s.logger.Printf("[notify] registered %s (%s)", msg.UserID, addr)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// LocalAddr reports the bound address, nil before Run has bound.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// AnnounceRefresh pushes a movie_refreshed datagram to every
// registered subscriber. Matches the cache service's OnRefresh hook.
func (s *Server) AnnounceRefresh(m *models.Movie) {
	if m == nil {
		return
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.logger.Printf("[notify] not running, dropping announcement for %s", m.IMDbID)
		return
	}

	payload, err := json.Marshal(RefreshedMessage{
		Type:    RefreshedMessageType,
		MovieID: m.ID,
		IMDbID:  m.IMDbID,
		Title:   m.Title,
	})
	if err != nil {
		s.logger.Printf("[notify] marshal announcement: %v", err)
		return
	}

	for _, client := range s.registry.Snapshot() {
		s.sendWithRetry(conn, client, payload)
	}
}

// sendWithRetry tries twice, then gives up and unregisters the client.
func (s *Server) sendWithRetry(conn *net.UDPConn, client Client, payload []byte) {
	if err := sendOnce(conn, client, payload); err == nil {
		return
	}
	if err := sendOnce(conn, client, payload); err != nil {
		s.logger.Printf("[notify] dropping %s at %s: %v", client.UserID, client.Addr, err)
		s.registry.Remove(client.UserID)
	}
}

func sendOnce(conn *net.UDPConn, client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
