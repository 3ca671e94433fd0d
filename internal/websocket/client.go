package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 64
)

// Timing controls the keepalive of a client
type Timing struct {
	PongWait   time.Duration
	PingPeriod time.Duration
}

// DefaultTiming waits 60s for a pong and pings every 54s
func DefaultTiming() Timing {
	return Timing{PongWait: 60 * time.Second, PingPeriod: 54 * time.Second}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.PongWait <= 0 {
		t.PongWait = d.PongWait
	}
	if t.PingPeriod <= 0 || t.PingPeriod >= t.PongWait {
		t.PingPeriod = t.PongWait * 9 / 10
	}
	return t
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	timing      Timing

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewClient wraps conn for hub. traceID ties the client's logs to the
// upgrade request and may be empty.
func NewClient(hub *Hub, conn Connection, traceID string, timing Timing, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		timing:      timing.withDefaults(),
		logger:      logger,
	}
}

// ID returns the client's identifier
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// ReadPump reads from the connection until it fails, then unregisters the
// client. Clients only send heartbeats; anything else is ignored.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.logger.InfoContext(ctx, "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(bytes.TrimSpace(message), &msg); err == nil && msg.Type == TypeHeartbeat {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
			continue
		}
		c.logger.DebugContext(ctx, "Ignoring client message", slog.Int("size", len(message)))
	}
}

// WritePump writes queued messages and pings to the connection. It returns
// when the hub closes the send channel or a write fails.
func (c *Client) WritePump() {
	ctx := c.context()
	ticker := time.NewTicker(c.timing.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(ctx, "WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Serve registers the client and starts its pumps. It returns immediately.
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		c.conn.Close()
		return
	}
	go c.WritePump()
	go c.ReadPump()
}
