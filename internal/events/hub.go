package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32

	allRaces = "*"
)

// clientMessage is sent by websocket clients to manage subscriptions
type clientMessage struct {
	Type   string `json:"type"`
	RaceID string `json:"race_id"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	subs map[string]struct{}
}

func (c *client) subscribed(raceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, all := c.subs[allRaces]
	_, one := c.subs[raceID]
	return all || one
}

// Hub pushes events to websocket clients subscribed to a race, or to "*" for all races
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a websocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
// An optional race_id query parameter subscribes the client immediately.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]struct{}),
	}
	if raceID := c.Query("race_id"); raceID != "" {
		cl.subs[raceID] = struct{}{}
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("WebSocket closed unexpectedly")
			}
			return
		}

		cl.mu.Lock()
		switch msg.Type {
		case "subscribe":
			cl.subs[msg.RaceID] = struct{}{}
		case "unsubscribe":
			delete(cl.subs, msg.RaceID)
		}
		cl.mu.Unlock()
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) broadcast(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if !cl.subscribed(env.RaceID) {
			continue
		}
		select {
		case cl.send <- data:
		default:
			h.logger.WithField("race_id", env.RaceID).Warn("Dropping event for slow websocket client")
		}
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BetPlaced pushes a bet_placed event to subscribers
func (h *Hub) BetPlaced(_ context.Context, bet *models.Bet) error {
	return h.broadcast(betPlacedEnvelope(bet))
}

// RaceSettled pushes a race_settled event to subscribers
func (h *Hub) RaceSettled(_ context.Context, result *models.SettlementResult) error {
	return h.broadcast(raceSettledEnvelope(result))
}
