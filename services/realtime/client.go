package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/darasahq/darasa/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 4 << 10
)

// Conn is the subset of *websocket.Conn the client pumps need. Tests
// substitute an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// TypingFunc forwards a typing signal read off the socket.
type TypingFunc func(ctx context.Context, conversationID string, typing bool)

// inboundFrame is the only client-to-server frame shape: typing signals.
// Messages themselves go over the REST endpoint.
type inboundFrame struct {
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}

// Client is one websocket subscriber of a single conversation.
type Client struct {
	ConversationID string
	// Ref is the optimistic-send client ref announced by the frontend; the
	// hub uses it to skip echoing a sender's own message back to it.
	Ref string

	conn     Conn
	send     chan []byte
	limiter  *rate.Limiter
	onTyping TypingFunc
	logger   core.Logger
}

func NewClient(conversationID, ref string, conn Conn, conf *core.Config, onTyping TypingFunc, logger core.Logger) *Client {
	return &Client{
		ConversationID: conversationID,
		Ref:            ref,
		conn:           conn,
		send:           make(chan []byte, conf.Chat.ClientBuffer),
		limiter:        rate.NewLimiter(rate.Limit(conf.Chat.SendRatePerSec), conf.Chat.SendBurst),
		onTyping:       onTyping,
		logger:         logger,
	}
}

// ReadPump consumes inbound frames until the socket errors, then unregisters
// the client. Run it on the handler goroutine.
func (c *Client) ReadPump(ctx context.Context, hub *Hub) {
	defer func() {
		hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("realtime: socket closed unexpectedly", "conversation", c.ConversationID, "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}
		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Debug("realtime: discarding malformed frame", "conversation", c.ConversationID, "error", err)
			continue
		}
		if frame.Type == "typing" && c.onTyping != nil {
			c.onTyping(ctx, c.ConversationID, frame.Typing)
		}
	}
}

// WritePump drains the send buffer onto the socket and keeps the connection
// alive with pings. Run it on its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
