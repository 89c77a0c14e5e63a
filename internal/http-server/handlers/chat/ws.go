package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"LiveDesk/internal/ws"
)

// Socket authenticates room sockets from the token query parameter.
type Socket interface {
	ws.Authenticator
	ws.RoomAccess
}

func Ws(log *slog.Logger, hub *ws.Hub, handler Socket) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, handler, handler, requestLogger(log, r), chi.URLParam(r, "roomId"), w, r)
	}
}
