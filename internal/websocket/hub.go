package websocket

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Outbox is one connection's outbound queue. Enqueue must not block.
type Outbox interface {
	ID() string
	Enqueue(v any) error
}

// Hub maps connection ids to their outboxes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Outbox
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]Outbox),
		logger:  logger,
	}
}

func (h *Hub) Register(o Outbox) {
	h.mu.Lock()
	h.clients[o.ID()] = o
	h.mu.Unlock()
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues v for id. Unknown ids and full buffers are logged and reported
// as false.
func (h *Hub) Send(id string, v any) bool {
	h.mu.RLock()
	o, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := o.Enqueue(v); err != nil {
		h.logger.Warn("dropping outbound message",
			zap.String("player", id),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Broadcast queues v for every id and returns how many accepted it.
func (h *Hub) Broadcast(ids []string, v any) int {
	sent := 0
	for _, id := range ids {
		if h.Send(id, v) {
			sent++
		}
	}
	return sent
}
