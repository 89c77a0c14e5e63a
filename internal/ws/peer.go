package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Peer is one participant socket attached to a room on the directory side.
type Peer struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	user   entity.UserAuth
	name   string
	roomID string
}

func (p *Peer) User() entity.UserAuth { return p.user }
func (p *Peer) Name() string          { return p.name }
func (p *Peer) RoomID() string        { return p.roomID }

// readPump pumps frames from the connection to the hub's frame handler.
func (p *Peer) readPump() {
	defer func() {
		select {
		case p.hub.unregister <- p:
		case <-p.hub.done:
		}
		_ = p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			break
		}
		p.hub.HandlePeerMessage(p, data)
	}
}

// writePump pumps queued frames from the hub to the connection.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case message, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := p.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Authenticator validates a token and returns the principal.
type Authenticator interface {
	AuthenticateByToken(token string) (*entity.UserAuth, error)
}

// RoomAccess decides whether a principal may attach to a room socket.
type RoomAccess interface {
	CanAttach(user *entity.UserAuth, roomID string) bool
}

// ServeWs upgrades GET /chat/{roomId}/ws?name=..&token=..&tenant_id=.. requests.
func ServeWs(hub *Hub, auth Authenticator, access RoomAccess, log *slog.Logger, roomID string, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := query.Get("token")
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := auth.AuthenticateByToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if tenant := query.Get("tenant_id"); tenant != "" && tenant != user.TenantID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !access.CanAttach(user, roomID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	name := query.Get("name")
	if name == "" {
		name = user.Name
	}

	peer := &Peer{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		user:   *user,
		name:   name,
		roomID: roomID,
	}

	select {
	case hub.register <- peer:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go peer.writePump()
	go peer.readPump()
}

func encode(ev entity.Event) ([]byte, error) {
	return json.Marshal(ev)
}
