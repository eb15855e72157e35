package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kzhou/parley/internal/logger"
)

// Client is one authenticated live connection.
type Client struct {
	ID       string
	UserID   int64
	Username string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewClient(id string, userID int64, username string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.cfg.SendBuffer),
	}
}

// ReadPump feeds inbound frames to handler until the transport drops. The
// deferred unregister is the single disconnect signal the hub reacts to.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Debug().Err(err).Str("conn_id", c.ID).Msg("websocket read")
			}
			break
		}
		handler(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues an event for this connection only.
func (c *Client) Send(event string, data any) {
	payload, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		logger.L().Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// SendError delivers a private error event to the originating connection.
// Errors are never broadcast to rooms.
func (c *Client) SendError(message string) {
	c.Send(EventError, errorPayload{Message: message})
}
