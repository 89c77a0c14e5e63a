package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func Join(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}
		roomID := chi.URLParam(r, "roomId")

		room, err := handler.JoinChat(r.Context(), user, roomID)
		if err != nil {
			renderError(w, r, logger.With(slog.String("room_id", roomID)), "join chat", err)
			return
		}
		render.JSON(w, r, room)
	}
}

func Close(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}
		roomID := chi.URLParam(r, "roomId")

		if err := handler.CloseChat(r.Context(), user, roomID); err != nil {
			renderError(w, r, logger.With(slog.String("room_id", roomID)), "close chat", err)
			return
		}
		render.JSON(w, r, nil)
	}
}

func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}
		roomID := chi.URLParam(r, "roomId")

		messages, err := handler.Messages(r.Context(), user, roomID)
		if err != nil {
			renderError(w, r, logger.With(slog.String("room_id", roomID)), "load messages", err)
			return
		}
		logger.Debug("messages loaded", slog.Int("count", len(messages)))
		render.JSON(w, r, messages)
	}
}
