package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxFrameBytes  = 4096
)

// subscribeRequest narrows the entities a dashboard hears about. An empty
// list restores the default of everything.
type subscribeRequest struct {
	Type     string   `json:"type"`
	Entities []Entity `json:"entities"`
}

// Client is one dashboard connection.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu     sync.RWMutex
	filter map[Entity]bool
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Wants reports whether entity passes the client's subscription. Reset
// notifications always pass.
func (c *Client) Wants(entity Entity) bool {
	if entity == EntityEverything {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter == nil || c.filter[entity]
}

func (c *Client) subscribe(entities []Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entities) == 0 {
		c.filter = nil
		return
	}
	c.filter = make(map[Entity]bool, len(entities))
	for _, e := range entities {
		c.filter[e] = true
	}
}

// handleFrame applies a client frame. Unknown or malformed frames are ignored.
func (c *Client) handleFrame(data []byte) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.hub.logger.Debug("ignoring unreadable frame", "error", err)
		return
	}
	if req.Type != "subscribe" {
		return
	}
	c.subscribe(req.Entities)
	c.hub.logger.Debug("client subscribed", "entities", req.Entities)
}

// Run blocks until the connection closes.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(maxFrameBytes)
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ == ws.MessageText {
			c.handleFrame(data)
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusGoingAway, "server closing")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
