package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Feed event types sent to clients as {type, payload}.
const (
	EventPostCreated  = "post_created"
	EventPostUpdated  = "post_updated"
	EventPostDeleted  = "post_deleted"
	EventPostLiked    = "post_liked"
	EventCommentAdded = "comment_added"

	eventConnected = "connected"
)

const (
	sendBuffer      = 256
	broadcastBuffer = 256
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
	maxMessageSize  = 512
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Manager fans feed events out to every connected client. The client set is
// owned by the Run goroutine.
type Manager struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        logrus.FieldLogger

	mu    sync.RWMutex
	count int
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	manager *Manager
}

func NewManager(log logrus.FieldLogger) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register, unregister and broadcast requests until ctx ends, then
// closes every client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			for client := range m.clients {
				m.drop(client)
			}
			return

		case client := <-m.register:
			m.clients[client] = true
			m.setCount()
			m.log.WithFields(logrus.Fields{
				"clients": len(m.clients),
				"user_id": client.userID,
			}).Debug("websocket client registered")

		case client := <-m.unregister:
			if m.clients[client] {
				m.drop(client)
				m.log.WithField("clients", len(m.clients)).Debug("websocket client unregistered")
			}

		case message := <-m.broadcast:
			for client := range m.clients {
				select {
				case client.send <- message:
				default:
					// Slow client.
					m.drop(client)
				}
			}
		}
	}
}

func (m *Manager) drop(client *Client) {
	delete(m.clients, client)
	close(client.send)
	m.setCount()
}

func (m *Manager) setCount() {
	m.mu.Lock()
	m.count = len(m.clients)
	m.mu.Unlock()
}

// Publish queues an event for every client. It never blocks the caller; when
// the queue is full the event is dropped.
func (m *Manager) Publish(eventType string, payload any) {
	msg, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		m.log.WithError(err).WithField("type", eventType).Error("marshal websocket event")
		return
	}
	select {
	case m.broadcast <- msg:
	default:
		m.log.WithField("type", eventType).Warn("websocket broadcast queue full, event dropped")
	}
}

func (m *Manager) ConnectedClients() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades the request. identify maps the request to a user id; an
// empty id means an anonymous viewer.
func Handler(m *Manager, identify func(r *http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := ""
		if identify != nil {
			userID = identify(r)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.log.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := &Client{
			conn:    conn,
			userID:  userID,
			send:    make(chan []byte, sendBuffer),
			manager: m,
		}
		client.enqueue(Event{Type: eventConnected, Payload: map[string]any{
			"userId": userID,
			"time":   time.Now().Unix(),
		}})

		select {
		case m.register <- client:
		case <-m.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// enqueue is only safe before the client is registered; afterwards the send
// channel belongs to the manager.
func (c *Client) enqueue(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients only listen; inbound frames are read to process control
	// messages and detect disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.log.WithError(err).Debug("websocket read error")
			}
			return
		}
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
