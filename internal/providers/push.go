package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

// ErrNoSubscriber is returned when a subscription has no open connection.
var ErrNoSubscriber = errors.New("no open connection for subscription")

const maxConnsPerSubscription = 10

// PushHub keeps websocket connections per push subscription and delivers
// push payloads to them.
type PushHub struct {
	connections  map[string]map[*websocket.Conn]bool // subscription -> set of connections
	mutex        sync.Mutex
	logger       *logging.Logger
	writeTimeout time.Duration
}

func NewPushHub(logger *logging.Logger) *PushHub {
	return &PushHub{
		connections:  make(map[string]map[*websocket.Conn]bool),
		logger:       logger,
		writeTimeout: 5 * time.Second,
	}
}

// Subscribe registers conn for subscription. It reports false when the
// subscription already holds the maximum number of connections.
func (h *PushHub) Subscribe(subscription string, conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[subscription]; !exists {
		h.connections[subscription] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[subscription]) >= maxConnsPerSubscription {
		h.logger.Warnf("Max connections reached for subscription %s", subscription)
		return false
	}
	h.connections[subscription][conn] = true
	h.logger.Infof("Added push connection for subscription %s (total: %d)", subscription, len(h.connections[subscription]))
	return true
}

func (h *PushHub) Unsubscribe(subscription string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if conns, exists := h.connections[subscription]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, subscription)
		}
		h.logger.Infof("Removed push connection for subscription %s (remaining: %d)", subscription, len(conns))
	}
}

// Connections returns the number of open connections for subscription.
func (h *PushHub) Connections(subscription string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.connections[subscription])
}

// SendPush writes the payload to every connection of the subscription.
// Connections that fail are dropped. The send fails only if no connection
// received the payload.
func (h *PushHub) SendPush(ctx context.Context, subscription string, p models.PushPayload, alert models.AlertEvent) error {
	message, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode push payload for alert %s: %w", alert.ID, err)
	}

	deadline := time.Now().Add(h.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	conns, exists := h.connections[subscription]
	if !exists || len(conns) == 0 {
		return fmt.Errorf("subscription %s: %w", subscription, ErrNoSubscriber)
	}

	delivered := 0
	var lastErr error
	for conn := range conns {
		_ = conn.SetWriteDeadline(deadline)
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to send push message to subscription %s: %v", subscription, err)
			lastErr = err
			delete(conns, conn)
			_ = conn.Close()
			continue
		}
		delivered++
	}
	if len(conns) == 0 {
		delete(h.connections, subscription)
	}
	if delivered == 0 {
		return fmt.Errorf("push to subscription %s failed: %w", subscription, lastErr)
	}
	return nil
}
