package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"colony-server/internal/claim"
	"colony-server/internal/coordinate"
	"colony-server/internal/middleware"
	"colony-server/internal/shared/errors"
	"colony-server/internal/shared/response"
)

type ClaimRequest struct {
	Galaxy   int    `json:"galaxy"`
	System   int    `json:"system"`
	Position int    `json:"position"`
	Label    string `json:"label,omitempty"`
}

type ProfileRequest struct {
	Label string `json:"label,omitempty"`
}

type ClaimHandler struct {
	service *claim.Service
}

func NewClaimHandler(service *claim.Service) *ClaimHandler {
	return &ClaimHandler{service: service}
}

// CreateClaim commits the requested coordinate for the authenticated owner.
// Refusals carry a claim.Rejection in the error details.
func (h *ClaimHandler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_claim")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req ClaimRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = user.Label
	}
	coord := coordinate.New(req.Galaxy, req.System, req.Position)

	committed, rejection, err := h.service.Claim(r.Context(), user.Owner, label, coord)
	if err != nil {
		if rejection != nil {
			response.ErrorWithDetails(w, r, logger, err, rejection)
			return
		}
		if claim.IsPersistence(err) {
			response.ErrorWithMessage(w, r, logger, err, "claim store unavailable, reload the galaxy before retrying")
			return
		}
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, committed)
}

// EnsureProfile registers the authenticated owner without claiming anything.
func (h *ClaimHandler) EnsureProfile(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "ensure_profile")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req ProfileRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
			return
		}
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = user.Label
	}

	if err := h.service.EnsureProfile(r.Context(), user.Owner, label); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"owner": string(user.Owner), "label": label})
}
