package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/api/response"
	"LiveDesk/internal/lib/sl"
)

func Start(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}

		var req entity.StartRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("invalid start request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}

		room, err := handler.StartChat(r.Context(), user, &req)
		if err != nil {
			renderError(w, r, logger, "start chat", err)
			return
		}

		logger.Debug("chat started", slog.String("room_id", room.ID))
		render.JSON(w, r, room)
	}
}

// Active replies with the caller's open room or null.
func Active(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		user, ok := authUser(w, r)
		if !ok {
			return
		}

		room, err := handler.ActiveChat(r.Context(), user)
		if err != nil {
			renderError(w, r, logger, "active chat", err)
			return
		}
		render.JSON(w, r, room)
	}
}
