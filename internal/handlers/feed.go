package handlers

import (
	"log/slog"
	"sync"
	"time"

	"lifeguard-backend/internal/metrics"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const feedBuffer = 16

// FeedHub fans check-in and prevention events out to live feed clients.
// Each connection gets a buffered channel; a client that falls behind misses
// events instead of blocking the broadcaster.
type FeedHub struct {
	// connID -> outgoing events
	clients map[string]chan models.FeedEvent
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewFeedHub(logger *slog.Logger) *FeedHub {
	return &FeedHub{
		clients: make(map[string]chan models.FeedEvent),
		logger:  logger,
	}
}

func (h *FeedHub) Subscribe(connID string) <-chan models.FeedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.FeedEvent, feedBuffer)
	h.clients[connID] = ch
	metrics.FeedClients.Inc()
	return ch
}

// Unsubscribe removes the connection and closes its channel
func (h *FeedHub) Unsubscribe(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		close(ch)
		metrics.FeedClients.Dec()
	}
}

func (h *FeedHub) Broadcast(event models.FeedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.clients {
		select {
		case ch <- event:
		default:
			h.logger.Warn("feed client lagging, event dropped", "conn_id", id, "event", event.Event)
		}
	}
}

func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// FeedHandler streams feed events to a websocket client until it disconnects
func FeedHandler(hub *FeedHub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		connID := uuid.New().String()
		events := hub.Subscribe(connID)

		defer func() {
			hub.Unsubscribe(connID)
			c.Close()
		}()

		if err := utils.SendJSON(c, models.FeedEvent{
			Event:     "connected",
			Message:   "Listening for check-ins and prevention logs",
			Timestamp: time.Now().Unix(),
		}); err != nil {
			return
		}

		// The feed is one-way; reading only detects the client going away
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						hub.logger.Warn("feed connection closed", "conn_id", connID, "error", err)
					}
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := utils.SendJSON(c, event); err != nil {
					utils.LogError(err, "FeedHandler")
					return
				}
			case <-closed:
				return
			}
		}
	})
}
