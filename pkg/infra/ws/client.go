package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one live websocket connection bound to an authenticated user.
// Outbound frames for a connection flow through its send channel, so send
// order is preserved per connection.
type Client struct {
	id       string
	userID   string
	username string

	hub    *Hub
	router *Router
	conn   *websocket.Conn
	send   chan []byte
}

// enqueue queues an outbound frame. A full buffer drops the frame; a slow
// reader must not block the emitter.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("send buffer full, dropping frame", "user_id", c.userID, "conn_id", c.id)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unbind(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("unexpected connection close", "user_id", c.userID, "error", err)
			}
			return
		}
		c.router.Dispatch(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Server upgrades HTTP requests to websocket connections. The handshake
// must carry the verified identity (userId, username); auth verification
// itself happens upstream.
type Server struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
}

// NewServer creates the websocket endpoint. Cross-origin upgrades are
// allowed only from allowedOrigin.
func NewServer(hub *Hub, router *Router, allowedOrigin string) *Server {
	return &Server{
		hub:    hub,
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser client
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				allowed, err := url.Parse(allowedOrigin)
				if err != nil {
					return false
				}
				return u.Scheme == allowed.Scheme && u.Host == allowed.Host
			},
		},
	}
}

// Handle upgrades the request and starts the read/write pumps.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	username := r.URL.Query().Get("username")
	if userID == "" || username == "" {
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		id:       uuid.NewString(),
		userID:   userID,
		username: username,
		hub:      s.hub,
		router:   s.router,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
	s.hub.Bind(c)

	go c.writePump()
	go c.readPump()
}
