package live

import (
	"encoding/json"
	"sync"
	"time"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Event is what viewers receive over the websocket: either the latest session
// doc after a host save, or a presence update when the viewer set changes.
type Event struct {
	Type    string             `json:"type"` // "doc" or "presence"
	Doc     *domain.SessionDoc `json:"doc,omitempty"`
	Viewers []string           `json:"viewers,omitempty"`
	Count   int                `json:"count,omitempty"`
}

type message struct {
	sessionID string
	data      []byte
}

// Hub fans session events out to every websocket viewer of that session.
// All map mutation happens on the Run goroutine; broadcasts take a read lock.
type Hub struct {
	logger zerolog.Logger

	clients    map[string]map[*Client]bool
	broadcast  chan *message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// Doc pushes are debounced per session so a burst of host saves collapses
	// into one message to viewers.
	pendingMu   sync.Mutex
	pendingDocs map[string]domain.SessionDoc
	timers      map[string]*time.Timer
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		clients:     make(map[string]map[*Client]bool),
		broadcast:   make(chan *message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		pendingDocs: make(map[string]domain.SessionDoc),
		timers:      make(map[string]*time.Timer),
	}
}

// Run is the hub's event loop; call it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.sessionID] == nil {
				h.clients[client.sessionID] = make(map[*Client]bool)
			}
			h.clients[client.sessionID][client] = true
			h.mu.Unlock()
			h.logger.Debug().Str("session_id", client.sessionID).Str("viewer", client.viewerName).Msg("viewer joined")
			h.broadcastPresence(client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			removed := false
			if clients, ok := h.clients[client.sessionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					removed = true
					if len(clients) == 0 {
						delete(h.clients, client.sessionID)
					}
				}
			}
			h.mu.Unlock()
			if removed {
				h.logger.Debug().Str("session_id", client.sessionID).Str("viewer", client.viewerName).Msg("viewer left")
				h.broadcastPresence(client.sessionID)
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients[msg.sessionID]))
			for client := range h.clients[msg.sessionID] {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- msg.data:
				default:
					// Slow client: drop it rather than stall the loop.
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
		}
	}
}

// BroadcastDoc schedules the doc for delivery to the session's viewers after
// the debounce window. Later calls within the window replace the pending doc,
// so viewers only ever see the newest state.
func (h *Hub) BroadcastDoc(sessionID string, doc domain.SessionDoc) {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()

	h.pendingDocs[sessionID] = doc
	if timer, ok := h.timers[sessionID]; ok {
		timer.Reset(constants.BroadcastDebounce)
		return
	}
	h.timers[sessionID] = time.AfterFunc(constants.BroadcastDebounce, func() {
		h.flushDoc(sessionID)
	})
}

func (h *Hub) flushDoc(sessionID string) {
	h.pendingMu.Lock()
	doc, ok := h.pendingDocs[sessionID]
	delete(h.pendingDocs, sessionID)
	delete(h.timers, sessionID)
	h.pendingMu.Unlock()
	if !ok {
		return
	}

	data, err := json.Marshal(Event{Type: "doc", Doc: &doc})
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal doc event")
		return
	}
	h.broadcast <- &message{sessionID: sessionID, data: data}
}

func (h *Hub) broadcastPresence(sessionID string) {
	h.mu.RLock()
	viewers := make([]string, 0, len(h.clients[sessionID]))
	for client := range h.clients[sessionID] {
		viewers = append(viewers, client.viewerName)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(Event{Type: "presence", Viewers: viewers, Count: len(viewers)})
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal presence event")
		return
	}
	h.broadcast <- &message{sessionID: sessionID, data: data}
}

// ViewerCount reports how many clients are watching a session.
func (h *Hub) ViewerCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
