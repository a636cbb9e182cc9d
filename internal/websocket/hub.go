package websocket

import (
	"encoding/json"
	"sync"
)

const EventLedgerChanged = "ledger_changed"

// LedgerEvent tells a user's open sessions that their ledger moved and
// derived views should be refetched.
type LedgerEvent struct {
	Event           string `json:"event"`
	Action          string `json:"action"`
	TransactionID   string `json:"transaction_id"`
	TransactionDate string `json:"transaction_date,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// BroadcastLedger never blocks; a client with a full buffer misses the event.
func (h *Hub) BroadcastLedger(userID string, event LedgerEvent) {
	if event.Event == "" {
		event.Event = EventLedgerChanged
	}
	payload, _ := json.Marshal(event)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
