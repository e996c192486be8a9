package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/campusguessr/scoreserver/internal/domain"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Instance  string      `json:"instance,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// LeaderboardUpdate contains fresh leaderboard data for broadcast.
// TotalScores counts every record the instance holds, not just the
// entries that made the board.
type LeaderboardUpdate struct {
	Instance    string                    `json:"instance"`
	Timeframe   domain.Timeframe          `json:"timeframe"`
	Entries     []domain.LeaderboardEntry `json:"entries"`
	TotalScores int64                     `json:"totalScores"`
}

// Hub maintains the set of active clients and broadcasts leaderboard
// updates to clients subscribed per game instance
type Hub struct {
	// Registered clients by game instance name
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Inbound messages to broadcast
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client   *Client
	instance string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				// Remove from all instance subscriptions
				for instance, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, instance)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.instance]; !ok {
				h.clients[req.instance] = make(map[*Client]bool)
			}
			h.clients[req.instance][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "instance", req.instance)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.instance]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.instance)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "instance", req.instance)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to all subscribed clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	// If the message names an instance, only send to its subscribers
	if message.Instance != "" {
		if clients, ok := h.clients[message.Instance]; ok {
			for client := range clients {
				select {
				case client.send <- data:
				default:
					// Client's buffer is full, skip
					h.logger.Warn("client buffer full, skipping", "client_id", client.id)
				}
			}
		}
	} else {
		// Broadcast to all clients
		for client := range h.allClients {
			select {
			case client.send <- data:
			default:
				h.logger.Warn("client buffer full, skipping", "client_id", client.id)
			}
		}
	}
}

// BroadcastLeaderboard sends a leaderboard update to clients subscribed to
// the given instance
func (h *Hub) BroadcastLeaderboard(instance string, tf domain.Timeframe, entries []domain.LeaderboardEntry, totalScores int64) {
	message := &Message{
		Type:     MessageTypeLeaderboardUpdate,
		Instance: instance,
		Data: LeaderboardUpdate{
			Instance:    instance,
			Timeframe:   tf,
			Entries:     entries,
			TotalScores: totalScores,
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to an instance subscription
func (h *Hub) Subscribe(client *Client, instance string) {
	h.subscribe <- &subscriptionRequest{
		client:   client,
		instance: instance,
	}
}

// Unsubscribe removes a client from an instance subscription
func (h *Hub) Unsubscribe(client *Client, instance string) {
	h.unsubscribe <- &subscriptionRequest{
		client:   client,
		instance: instance,
	}
}

// GetSubscriberCount returns the number of subscribers for an instance
func (h *Hub) GetSubscriberCount(instance string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[instance]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
