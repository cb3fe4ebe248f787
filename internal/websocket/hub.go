package websocket

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
)

// Entity names what changed. Dashboards refetch the matching resource.
type Entity string

const (
	EntityMember     Entity = "member"
	EntityChore      Entity = "chore"
	EntityEvent      Entity = "calendar_event"
	EntityRecipe     Entity = "recipe"
	EntityMeal       Entity = "meal"
	EntityShopping   Entity = "shopping_list"
	EntityGoogle     Entity = "google_task"
	EntityMapping    Entity = "mapping"
	EntitySettings   Entity = "settings"
	EntityEverything Entity = "all"
)

type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionCompleted Action = "completed"
	ActionReopened  Action = "reopened"
	ActionMoved     Action = "moved"
	ActionReset     Action = "reset"
)

// Message is the change notification pushed to every dashboard.
type Message struct {
	Type   string         `json:"type"`
	Entity Entity         `json:"entity"`
	Action Action         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func NewMessage(entity Entity, action Action, id string, extra map[string]any) Message {
	return Message{
		Type:   string(entity) + "_" + string(action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// IDMessage is NewMessage for rows with integer keys.
func IDMessage(entity Entity, action Action, id int64) Message {
	return NewMessage(entity, action, strconv.FormatInt(id, 10), nil)
}

// Hub tracks connected dashboards and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// Unregister removes a client and closes its send channel. Safe to repeat.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every subscribed client. It never blocks: a
// client whose buffer is full misses the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.Wants(msg.Entity) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropping message for slow client", "type", msg.Type)
		}
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
