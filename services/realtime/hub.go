package realtime

import (
	"context"
	"encoding/json"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
)

// envelope is the wire frame pushed to sockets. The event name doubles as
// the client-side dispatch key.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type outbound struct {
	conversationID string
	event          string
	payload        interface{}
	excludeRef     string
}

// Hub fans realtime events out to the sockets subscribed to a conversation.
// All subscription state is owned by the Run goroutine; the exported methods
// only push onto channels, so they are safe from any goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	conversations map[string]map[*Client]bool
	logger        core.Logger
}

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan outbound, 64),
		conversations: make(map[string]map[*Client]bool),
		logger:        logger,
	}
}

// Run owns the hub state until ctx is cancelled. Start it once, before any
// socket is accepted.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.conversations {
				for c := range clients {
					close(c.send)
				}
			}
			h.conversations = make(map[string]map[*Client]bool)
			return
		case c := <-h.register:
			clients, ok := h.conversations[c.ConversationID]
			if !ok {
				clients = make(map[*Client]bool)
				h.conversations[c.ConversationID] = clients
			}
			clients[c] = true
			clientsConnected.Inc()
		case c := <-h.unregister:
			if clients, ok := h.conversations[c.ConversationID]; ok {
				if clients[c] {
					delete(clients, c)
					close(c.send)
					clientsConnected.Dec()
				}
				if len(clients) == 0 {
					delete(h.conversations, c.ConversationID)
				}
			}
		case out := <-h.broadcast:
			h.deliver(out)
		}
	}
}

func (h *Hub) deliver(out outbound) {
	clients := h.conversations[out.conversationID]
	if len(clients) == 0 {
		return
	}
	frame, err := json.Marshal(envelope{Event: out.event, Data: out.payload})
	if err != nil {
		h.logger.Error("realtime: encoding frame", "event", out.event, "error", err)
		return
	}
	for c := range clients {
		if out.excludeRef != "" && c.Ref == out.excludeRef {
			continue
		}
		select {
		case c.send <- frame:
			eventsDelivered.WithLabelValues(out.event).Inc()
		default:
			// Slow consumer; drop it rather than stall the hub.
			framesDropped.Inc()
			delete(clients, c)
			close(c.send)
			clientsConnected.Dec()
		}
	}
	if len(clients) == 0 {
		delete(h.conversations, out.conversationID)
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// BroadcastMessage implements chat.Broadcaster. The socket that originated
// the optimistic send is skipped by client ref so the sender never receives
// its own echo.
func (h *Hub) BroadcastMessage(ev chat.MessageEvent, excludeClientRef string) {
	h.broadcast <- outbound{
		conversationID: ev.ConversationID,
		event:          chat.EventMessage,
		payload:        ev,
		excludeRef:     excludeClientRef,
	}
}

// BroadcastTyping implements chat.Broadcaster.
func (h *Hub) BroadcastTyping(ev chat.TypingEvent) {
	h.broadcast <- outbound{
		conversationID: ev.ConvID(),
		event:          chat.EventTyping,
		payload:        ev,
	}
}
