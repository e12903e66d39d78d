package handlers

import (
	"log/slog"
	"net/http"

	"colony-server/internal/shared/config"
	"colony-server/internal/shared/cookies"
	"colony-server/internal/shared/errors"
	"colony-server/internal/shared/response"
)

type LogoutHandler struct {
	auth     config.AuthConfig
	frontend config.FrontendConfig
}

func NewLogoutHandler(auth config.AuthConfig, frontend config.FrontendConfig) *LogoutHandler {
	return &LogoutHandler{auth: auth, frontend: frontend}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	cookies.ClearAuthCookie(w, h.auth, h.frontend)
	logger.Debug("Auth cookie cleared")

	response.Success(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
