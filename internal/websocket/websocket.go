// Package websocket carries quiz intents and events over gorilla websocket
// connections.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 << 10
)

// =============================================================================
// CLIENT
// =============================================================================

// Client is one websocket connection. Its id is the connection identity used
// as host or player id.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newClient(id string, conn *websocket.Conn, buffer int, logger *zap.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("player", id)),
	}
}

func (c *Client) ID() string { return c.id }

// Enqueue marshals v and queues it without blocking. A client whose buffer
// is full is too slow to keep up and is closed.
func (c *Client) Enqueue(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.close()
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump feeds every inbound frame to the gateway until the connection
// fails.
func (c *Client) readPump(ctx context.Context, gateway *Gateway) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		gateway.Handle(ctx, c.id, raw)
	}
}

// writePump drains the send queue in order and keeps the connection alive
// with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// Handler upgrades HTTP requests and runs one Client per connection.
type Handler struct {
	gateway    *Gateway
	hub        *Hub
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *zap.Logger
}

func NewHandler(gateway *Gateway, hub *Hub, allowedOrigins []string, sendBuffer int, logger *zap.Logger) *Handler {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Handler{
		gateway: gateway,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return utils.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("remote", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	client := newClient(utils.GenerateID(), conn, h.sendBuffer, h.logger)
	h.hub.Register(client)
	h.logger.Info("client connected",
		zap.String("player", client.id),
		zap.String("remote", r.RemoteAddr),
		zap.Int("clients", h.hub.Count()),
	)

	go client.writePump()
	h.gateway.Connected(client.id)

	client.readPump(r.Context(), h.gateway)

	h.hub.Unregister(client.id)
	h.gateway.Disconnect(client.id)
	h.logger.Info("client disconnected",
		zap.String("player", client.id),
		zap.Int("clients", h.hub.Count()),
	)
}
