package handlers

import (
	"log/slog"
	"net/http"

	"colony-server/internal/claim"
	"colony-server/internal/middleware"
	"colony-server/internal/shared/errors"
	"colony-server/internal/shared/response"
)

type PlayersHandler struct {
	service *claim.Service
}

func NewPlayersHandler(service *claim.Service) *PlayersHandler {
	return &PlayersHandler{service: service}
}

func (h *PlayersHandler) GetPlayers(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "players")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	profiles, err := h.service.Profiles(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, profiles)
}

// GetMe returns the caller's profile and home coordinate.
func (h *PlayersHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("no user claims found in context"))
		return
	}

	profile, err := h.service.Profile(r.Context(), user.Owner)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, profile)
}
