package server

import (
	"context"
	"log/slog"
	"net/http"

	"colony-server/internal/claim"
	claimHandlers "colony-server/internal/claim/handlers"
	"colony-server/internal/colony"
	"colony-server/internal/middleware"
	serverHandlers "colony-server/internal/server/handlers"
	"colony-server/internal/shared/config"
	"colony-server/internal/shared/events"
)

type Routes struct {
	cfg          *config.Config
	store        colony.Pinger
	claimService *claim.Service
	bus          *events.Bus
	logger       *slog.Logger
}

func NewRoutes(cfg *config.Config, store colony.Pinger, claimService *claim.Service, bus *events.Bus, logger *slog.Logger) *Routes {
	return &Routes{
		cfg:          cfg,
		store:        store,
		claimService: claimService,
		bus:          bus,
		logger:       logger,
	}
}

// Setup builds the handler tree. ctx bounds background work such as the
// rate limiter's sweeper.
func (r *Routes) Setup(ctx context.Context) http.Handler {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.store, r.cfg.Claims.Store)
	logoutHandler := serverHandlers.NewLogoutHandler(r.cfg.Auth, r.cfg.Frontend)
	galaxyHandler := claimHandlers.NewGalaxyHandler(r.claimService)
	claimHandler := claimHandlers.NewClaimHandler(r.claimService)
	playersHandler := claimHandlers.NewPlayersHandler(r.claimService)
	feedHandler := claimHandlers.NewFeedHandler(r.bus, r.cfg.Frontend.URL)

	requireAuth := middleware.JWTMiddleware(r.cfg.Auth)
	claimLimiter := middleware.NewRateLimiter(ctx, r.cfg.RateLimit)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/galaxy", galaxyHandler.GetOverview)
	mux.HandleFunc("/api/galaxy/{galaxy}/systems/{system}", galaxyHandler.GetSystem)
	mux.HandleFunc("/api/players", playersHandler.GetPlayers)
	mux.Handle("/api/claims/feed", feedHandler)

	// Protected endpoints (authenticated users)
	mux.Handle("/api/claims", claimLimiter.Middleware(requireAuth(http.HandlerFunc(claimHandler.CreateClaim))))
	mux.Handle("/api/profile", requireAuth(http.HandlerFunc(claimHandler.EnsureProfile)))
	mux.Handle("/api/players/me", requireAuth(http.HandlerFunc(playersHandler.GetMe)))

	mux.Handle("/auth/logout", logoutHandler)

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/galaxy", "/api/galaxy/{galaxy}/systems/{system}", "/api/players", "/api/claims/feed"},
		"protected_endpoints", []string{"/api/claims", "/api/profile", "/api/players/me"},
		"auth_endpoints", []string{"/auth/logout"},
	)

	cors := middleware.NewCORS(r.cfg.Frontend)
	return cors.Middleware(mux)
}
