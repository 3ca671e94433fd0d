package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/infrastructure"
)

const broadcastQueueSize = 64

// outbound is a marshalled message waiting for the hub loop
type outbound struct {
	msgType string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Client send channels are only closed by the hub loop.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *hubMetrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// HubStats is a snapshot of hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		metrics:    newHubMetrics(logger),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a new goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop disconnects every client and waits for the hub loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.connected(ctx)
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	welcome, err := json.Marshal(newMessage(TypeConnection, map[string]interface{}{
		"status":    "connected",
		"client_id": client.id,
	}, client.traceID))
	if err != nil {
		return
	}
	select {
	case client.send <- welcome:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.disconnected(ctx, time.Since(client.connectedAt))
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// fanOut queues msg on every client. Clients whose buffer is full are
// disconnected.
func (h *Hub) fanOut(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients {
		select {
		case client.send <- msg.payload:
			sent++
		default:
			close(client.send)
			delete(h.clients, client)
			h.messagesDropped++
			h.metrics.dropped(client.context(), "client_buffer_full")
			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.messagesSent += int64(sent)
	h.metrics.sent(context.Background(), msg.msgType, sent)

	h.logger.Debug("Broadcast delivered",
		slog.String("type", msg.msgType),
		slog.Int("clients", sent),
		slog.Int("payload_size", len(msg.payload)))
}

// Publish broadcasts a typed message to every client. It never blocks: when
// the broadcast queue is full the message is dropped and logged.
func (h *Hub) Publish(ctx context.Context, msgType string, data interface{}) {
	payload, err := json.Marshal(newMessage(msgType, data, infrastructure.GetTraceID(ctx)))
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msgType))
		return
	}

	select {
	case h.broadcast <- outbound{msgType: msgType, payload: payload}:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.metrics.dropped(ctx, "broadcast_queue_full")
		h.logger.WarnContext(ctx, "Broadcast queue full, message dropped",
			slog.String("message_type", msgType))
	}
}

// Register adds a client to the hub. It returns false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the current hub counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		MessagesDropped:  h.messagesDropped,
	}
}
