package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/models"
	sched "github.com/rosterforge/rosterforge/internal/schedule"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 256
	broadcastSize  = 64
)

// Message is the wire form of one change on the live feed.
type Message struct {
	Type      string           `json:"type"`
	TeamID    string           `json:"team_id"`
	Activity  *models.Activity `json:"activity,omitempty"`
	WeekStart string           `json:"week_start,omitempty"`
}

// MessageFromEvent converts a committed change into its wire form.
func MessageFromEvent(evt sched.Event) Message {
	msg := Message{Type: string(evt.Kind), TeamID: evt.TeamID, WeekStart: evt.WeekStart}
	if evt.Activity.ID != "" {
		activity := evt.Activity
		msg.Activity = &activity
	}
	return msg
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	teamID string
	userID string
}

// Hub fans committed changes out to websocket clients subscribed to the same team.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan sched.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan sched.Event, broadcastSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			log.Debug().Str("team_id", client.teamID).Str("user_id", client.userID).Msg("Live client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Debug().Str("team_id", client.teamID).Str("user_id", client.userID).Msg("Live client unregistered")

		case evt := <-h.broadcast:
			h.deliver(evt)
		}
	}
}

func (h *Hub) deliver(evt sched.Event) {
	payload, err := json.Marshal(MessageFromEvent(evt))
	if err != nil {
		log.Error().Err(err).Str("team_id", evt.TeamID).Msg("Failed to marshal live message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.teamID != evt.TeamID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			log.Warn().Str("team_id", client.teamID).Str("user_id", client.userID).Msg("Dropping slow live client")
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Publish queues an event for delivery. It never blocks; when the queue is full the event
// is dropped and clients catch up on their next reload.
func (h *Hub) Publish(evt sched.Event) {
	select {
	case h.broadcast <- evt:
	default:
		log.Warn().Str("team_id", evt.TeamID).Str("type", string(evt.Kind)).Msg("Live feed queue full, dropping event")
	}
}

// ClientCount reports how many clients are subscribed to teamID.
func (h *Hub) ClientCount(teamID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for client := range h.clients {
		if client.teamID == teamID {
			n++
		}
	}
	return n
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// readPump only watches for close frames and pongs; clients never send data on this feed.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("team_id", c.teamID).Msg("Unexpected websocket close")
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("team_id", c.teamID).Msg("Failed to write live message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// newUpgrader accepts same-host origins, the listed origins, and clients that send no Origin.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			allowed[strings.ToLower(origin)] = struct{}{}
		}
	}
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: writeWait,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
}
