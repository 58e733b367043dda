package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// MessageHandler is invoked for every inbound frame, in order.
type MessageHandler func(client *Client, msg Envelope)

// Client is one websocket connection. Session holds caller state set by
// the connection handler.
type Client struct {
	ID      string
	Session interface{}

	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, session interface{}) *Client {
	return &Client{
		ID:      uuid.New().String(),
		Session: session,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
}

func (c *Client) Hub() *Hub { return c.hub }

// Emit queues an event for this client only.
func (c *Client) Emit(event string, data interface{}) {
	frame, err := NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode realtime event")
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.all[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		log.Warn().Str("client_id", c.ID).Str("event", event).Msg("Dropping realtime frame for slow client")
	}
}

// Run registers the client and pumps frames until the connection closes.
// It blocks until the read side ends.
func (c *Client) Run(onMessage MessageHandler) {
	c.hub.Register(c)
	go c.writePump()
	c.readPump(onMessage)
}

func (c *Client) readPump(onMessage MessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", c.ID).Msg("Websocket closed unexpectedly")
			}
			return
		}

		var msg Envelope
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
			c.Emit("error", map[string]string{"message": "malformed message"})
			continue
		}
		onMessage(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
