package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"LiveDesk/internal/config"
	"LiveDesk/internal/http-server/handlers/chat"
	handlerErrors "LiveDesk/internal/http-server/handlers/errors"
	"LiveDesk/internal/http-server/middleware/authenticate"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	chat.Core
	chat.Socket
}

// NewRouter builds the Room Directory routes under /api/v1.
func NewRouter(log *slog.Logger, handler Handler, hub *ws.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(handlerErrors.NotFound(log))
	router.MethodNotAllowed(handlerErrors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/chat/{roomId}/ws", chat.Ws(log, hub, handler))

		v1.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Second))
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(authenticate.New(log, handler))

			r.Post("/chat/start", chat.Start(log, handler))
			r.Get("/chat/active", chat.Active(log, handler))
			r.Post("/chat/{roomId}/join", chat.Join(log, handler))
			r.Post("/chat/{roomId}/close", chat.Close(log, handler))
			r.Get("/chat/{roomId}/messages", chat.Messages(log, handler))

			r.Get("/chats/waiting", chat.Waiting(log, handler))
			r.Get("/chats/active", chat.ActiveList(log, handler))
		})
	})

	return router
}

// New serves the Room Directory until ctx ends.
func New(ctx context.Context, conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(log, handler, hub),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.httpServer.Shutdown(shutdownCtx)
	}()

	err = server.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
