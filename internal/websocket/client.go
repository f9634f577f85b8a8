package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Dispatcher is the subset of internal/dispatcher's surface the hub
// needs: hand off one parsed inbound message for processing.
type Dispatcher interface {
	HandleMessage(ctx context.Context, sessionID string, msg *ClientInMessage)
	HandleDisconnect(ctx context.Context, sessionID string)
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *OutgoingMessage

	SessionID   string
	UserID      int64
	Username    string
	DisplayName string
	RoomID      string

	dispatcher Dispatcher
	ctx        context.Context
}

// NewClient wires a just-upgraded connection into the hub and starts
// its pumps. Callers must have already authenticated the connection.
func NewClient(hub *Hub, conn *websocket.Conn, dispatcher Dispatcher, sessionID string, userID int64, username, displayName, roomID string) *Client {
	c := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan *OutgoingMessage, 256),
		SessionID:   sessionID,
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		RoomID:      roomID,
		dispatcher:  dispatcher,
		ctx:         context.Background(),
	}
	hub.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		if c.dispatcher != nil {
			c.dispatcher.HandleDisconnect(c.ctx, c.SessionID)
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info().Err(err).Str("session_id", c.SessionID).Msg("websocket closed")
			}
			return
		}

		var msg ClientInMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Str("session_id", c.SessionID).Msg("malformed inbound message")
			continue
		}
		if len(msg.Type) > MaxClientMessageTypeLength || !ValidClientMessageTypes[msg.Type] {
			log.Warn().Str("type", msg.Type).Msg("rejected unknown message type")
			continue
		}
		if c.dispatcher != nil {
			c.dispatcher.HandleMessage(c.ctx, c.SessionID, &msg)
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
		case out, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(out.Envelope); err != nil {
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
