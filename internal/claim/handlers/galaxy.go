package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"colony-server/internal/claim"
	"colony-server/internal/shared/errors"
	"colony-server/internal/shared/response"
)

type GalaxyHandler struct {
	service *claim.Service
}

func NewGalaxyHandler(service *claim.Service) *GalaxyHandler {
	return &GalaxyHandler{service: service}
}

func (h *GalaxyHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "galaxy_overview")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	overview, err := h.service.Overview(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, overview)
}

func (h *GalaxyHandler) GetSystem(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "galaxy_system")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	galaxy, err := strconv.Atoi(r.PathValue("galaxy"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid galaxy", err))
		return
	}
	system, err := strconv.Atoi(r.PathValue("system"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid system", err))
		return
	}

	view, err := h.service.System(r.Context(), galaxy, system)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, view)
}
