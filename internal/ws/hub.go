package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
)

// FrameHandler handles frames received from room participants.
type FrameHandler interface {
	HandleFrame(peer *Peer, ev entity.Event)
}

type roomEvent struct {
	roomID string
	except *Peer
	data   []byte
}

// Hub keeps the sockets attached to each room and fans events out to them.
type Hub struct {
	rooms      map[string]map[*Peer]bool
	broadcast  chan *roomEvent
	register   chan *Peer
	unregister chan *Peer
	done       chan struct{}
	mu         sync.RWMutex
	handler    FrameHandler
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Peer]bool),
		broadcast:  make(chan *roomEvent, 256),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		done:       make(chan struct{}),
		log:        log.With(sl.Module("ws.hub")),
	}
}

// SetHandler sets the handler for incoming participant frames.
func (h *Hub) SetHandler(handler FrameHandler) {
	h.handler = handler
}

// Run is the hub's event loop; it returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for roomID, peers := range h.rooms {
				for peer := range peers {
					close(peer.send)
				}
				delete(h.rooms, roomID)
			}
			h.mu.Unlock()
			return

		case peer := <-h.register:
			h.mu.Lock()
			peers, ok := h.rooms[peer.roomID]
			if !ok {
				peers = make(map[*Peer]bool)
				h.rooms[peer.roomID] = peers
			}
			peers[peer] = true
			h.mu.Unlock()

		case peer := <-h.unregister:
			h.mu.Lock()
			h.remove(peer)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for peer := range h.rooms[event.roomID] {
				if peer == event.except {
					continue
				}
				select {
				case peer.send <- event.data:
				default:
					h.remove(peer)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(peer *Peer) {
	peers, ok := h.rooms[peer.roomID]
	if !ok {
		return
	}
	if _, ok := peers[peer]; ok {
		delete(peers, peer)
		close(peer.send)
	}
	if len(peers) == 0 {
		delete(h.rooms, peer.roomID)
	}
}

// Broadcast sends ev to every socket of the room.
func (h *Hub) Broadcast(roomID string, ev entity.Event) {
	h.publish(roomID, nil, ev)
}

// BroadcastExcept sends ev to every socket of the room but one.
func (h *Hub) BroadcastExcept(roomID string, except *Peer, ev entity.Event) {
	h.publish(roomID, except, ev)
}

func (h *Hub) publish(roomID string, except *Peer, ev entity.Event) {
	data, err := encode(ev)
	if err != nil {
		h.log.Error("marshal event", sl.Err(err))
		return
	}
	select {
	case h.broadcast <- &roomEvent{roomID: roomID, except: except, data: data}:
	case <-h.done:
	}
}

// Connections reports how many sockets are attached to a room.
func (h *Hub) Connections(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// HandlePeerMessage parses and dispatches a frame from a participant.
func (h *Hub) HandlePeerMessage(peer *Peer, raw []byte) {
	if h.handler == nil {
		return
	}

	var ev entity.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.log.Warn("failed to parse peer ws message", sl.Err(err))
		return
	}
	if err := ev.Validate(); err != nil {
		h.log.Warn("invalid peer ws message", sl.Err(err))
		return
	}
	h.handler.HandleFrame(peer, ev)
}
