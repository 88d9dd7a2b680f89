package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"erwpulse/internal/infrastructure"
	"erwpulse/pkg/contracts/events"
)

const (
	// broadcastQueue bounds messages waiting for the hub loop.
	broadcastQueue = 64

	// statsInterval is how often the hub logs its counters.
	statsInterval = 30 * time.Second
)

// HubStats is a snapshot of the hub counters.
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
	SlowDisconnects  int64 `json:"slow_disconnects"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Encoded messages waiting to be fanned out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	stats   HubStats

	// Control
	quit     chan struct{}
	done     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in the background. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
	go h.reportStats(statsInterval)
}

// run is the hub loop. Every write to a client channel happens here.
// It disconnects all clients and returns after Stop.
func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.stats.TotalConnections++
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.TrackWebSocketClient(ctx, 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	msg := events.NewMessage(events.MessageTypeConnect, events.ConnectData{
		ClientID: client.id,
		Message:  "Connected to ERW Pulse live updates",
	})
	msg.TraceID = client.traceID
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connect message dropped",
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
	h.metrics.TrackWebSocketClient(ctx, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// fanOut delivers message to every client. A client whose buffer is full is
// disconnected rather than allowed to stall the others.
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.send <- message:
			sent++
		default:
			h.mu.Lock()
			h.stats.SlowDisconnects++
			h.mu.Unlock()
			h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			h.removeClient(client)
		}
	}

	h.mu.Lock()
	h.stats.MessagesSent += int64(sent)
	h.mu.Unlock()

	h.logger.Debug("broadcast delivered",
		slog.Int("client_count", len(clients)),
		slog.Int("delivered", sent),
		slog.Int("message_size", len(message)))
}

// Broadcast queues msg for every connected client. It never blocks: when
// the queue is full or the hub is stopped the message is dropped.
func (h *Hub) Broadcast(msg events.Message) {
	ctx := context.Background()
	if msg.TraceID != "" {
		ctx = infrastructure.WithTraceID(ctx, msg.TraceID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode message",
			slog.String("message_type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		h.dropped(ctx, msg.Type, "hub stopped")
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		h.dropped(ctx, msg.Type, "broadcast queue full")
	}
}

func (h *Hub) dropped(ctx context.Context, t events.MessageType, reason string) {
	h.mu.Lock()
	h.stats.MessagesDropped++
	h.mu.Unlock()
	h.logger.WarnContext(ctx, "broadcast dropped",
		slog.String("message_type", string(t)),
		slog.String("reason", reason))
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

func (h *Hub) unregisterClient(client *Client) {
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

// Stats returns the current hub counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.stats
	s.ActiveClients = len(h.clients)
	return s
}

// Stop ends the hub loop and waits for it to disconnect every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		running := h.running
		h.running = false
		h.mu.Unlock()

		if running {
			<-h.done
			return
		}
		h.closeAll()
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		close(client.send)
		h.metrics.TrackWebSocketClient(client.context(), -1)
	}
}

func (h *Hub) reportStats(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			s := h.Stats()
			h.logger.Info("websocket hub stats",
				slog.Int("active_clients", s.ActiveClients),
				slog.Int64("total_connections", s.TotalConnections),
				slog.Int64("messages_sent", s.MessagesSent),
				slog.Int64("messages_dropped", s.MessagesDropped),
				slog.Int("broadcast_queue", len(h.broadcast)))
		}
	}
}
