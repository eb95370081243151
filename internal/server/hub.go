package server

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/presence"
)

const clientSendBuffer = 16

// ConnLike is the part of a websocket connection the hub needs.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

type client struct {
	userID chat.UserID
	conn   ConnLike
	send   chan []byte
}

// Hub tracks connected users and broadcasts the online set on every join and
// leave. A user with several sockets stays online until the last one closes.
type Hub struct {
	log     zerolog.Logger
	metrics *Metrics

	mu      sync.Mutex
	clients map[chat.UserID]map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		clients: make(map[chat.UserID]map[*client]struct{}),
	}
}

// Serve registers conn for userID and blocks until the peer goes away.
func (h *Hub) Serve(userID chat.UserID, conn ConnLike) {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, clientSendBuffer)}
	h.join(c)
	defer h.leave(c)

	go c.writePump()
	c.readPump()
}

// Online returns the connected user ids in sorted order.
func (h *Hub) Online() []chat.UserID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onlineLocked()
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = make(map[*client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	h.broadcastLocked()
	h.mu.Unlock()

	h.metrics.connected()
	h.log.Debug().Str("user_id", c.userID.String()).Msg("presence joined")
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	if conns, ok := h.clients[c.userID]; ok {
		if _, present := conns[c]; present {
			delete(conns, c)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.broadcastLocked()
	h.mu.Unlock()

	_ = c.conn.Close()
	h.log.Debug().Str("user_id", c.userID.String()).Msg("presence left")
}

func (h *Hub) onlineLocked() []chat.UserID {
	ids := make([]chat.UserID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// broadcastLocked queues the online frame for every client. Slow clients
// miss frames rather than blocking the hub; the next frame carries the full set.
func (h *Hub) broadcastLocked() {
	online := h.onlineLocked()
	h.metrics.setOnline(len(online))

	payload, err := json.Marshal(presence.Frame{Type: presence.FrameOnlineUsers, UserIDs: online})
	if err != nil {
		h.log.Error().Err(err).Msg("encode presence frame")
		return
	}
	for _, conns := range h.clients {
		for c := range conns {
			select {
			case c.send <- payload:
			default:
				h.log.Warn().Str("user_id", c.userID.String()).Msg("presence frame dropped")
			}
		}
	}
}

func (c *client) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Close disconnects every client. Their Serve calls return once the read
// loop notices.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]ConnLike, 0)
	for _, set := range h.clients {
		for c := range set {
			conns = append(conns, c.conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
