package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/shared/response"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store"`
	Backend   string `json:"backend"`
}

type HealthHandler struct {
	store   colony.Pinger
	backend string
}

func NewHealthHandler(store colony.Pinger, backend string) *HealthHandler {
	return &HealthHandler{store: store, backend: backend}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeStatus := "disconnected"
	if err := h.store.Ping(ctx); err == nil {
		storeStatus = "connected"
	} else {
		logger.Warn("Store ping failed", "error", err, "backend", h.backend)
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Store:     storeStatus,
		Backend:   h.backend,
	}

	response.Success(w, http.StatusOK, resp)
}
