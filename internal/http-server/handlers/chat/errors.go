package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"LiveDesk/entity"
	"LiveDesk/impl/core"
	"LiveDesk/internal/lib/api/cont"
	"LiveDesk/internal/lib/api/response"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/storage"
)

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.chat"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// authUser returns the principal put in the context by the authenticate middleware.
func authUser(w http.ResponseWriter, r *http.Request) (*entity.UserAuth, bool) {
	user := cont.GetUser(r.Context())
	if user == nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Unauthorized"))
		return nil, false
	}
	return user, true
}

func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, action string, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status, message = http.StatusNotFound, "Room not found"
	case errors.Is(err, storage.ErrAlreadyClaimed):
		status, message = http.StatusConflict, "Room already claimed"
	case errors.Is(err, storage.ErrRoomClosed):
		status, message = http.StatusConflict, "Room is closed"
	case errors.Is(err, core.ErrForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	}

	if status == http.StatusInternalServerError {
		logger.Error(action, sl.Err(err))
	} else {
		logger.Debug(action, sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(message))
}
