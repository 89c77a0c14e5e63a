package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

func Waiting(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}

		rooms, err := handler.WaitingChats(r.Context(), user)
		if err != nil {
			renderError(w, r, logger, "waiting chats", err)
			return
		}
		render.JSON(w, r, rooms)
	}
}

func ActiveList(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}

		rooms, err := handler.ActiveChats(r.Context(), user)
		if err != nil {
			renderError(w, r, logger, "active chats", err)
			return
		}
		render.JSON(w, r, rooms)
	}
}
