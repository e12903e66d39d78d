// Package app assembles the colony services from configuration. Both the
// HTTP server and colonyctl start here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"colony-server/internal/claim"
	"colony-server/internal/colony/stores"
	"colony-server/internal/occupancy"
	"colony-server/internal/shared/config"
	"colony-server/internal/shared/events"
)

type App struct {
	Config      *config.Config
	Store       stores.Store
	Bus         *events.Bus
	Loader      *occupancy.Loader
	Coordinator *claim.Coordinator
	Service     *claim.Service

	closeStore func() error
	logger     *slog.Logger
}

func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	log := logger.With("component", "app", "operation", "build")
	if err := cfg.ValidateClaims(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	bounds := cfg.Galaxy.Bounds()

	reservations, err := occupancy.LoadReservations(cfg.Galaxy.ReservationsFile, bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	log.Info("Reservations loaded", "count", len(reservations), "file", cfg.Galaxy.ReservationsFile)

	store, closeStore, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open claim store: %w", err)
	}

	bus := events.NewBus(cfg.Claims.FeedBuffer, logger)

	loader := occupancy.NewLoader(store, occupancy.LoaderConfig{
		Bounds:       bounds,
		Reservations: reservations,
		Timeout:      cfg.Claims.SnapshotTimeout,
	}, logger)

	coordinator := claim.NewCoordinator(store, claim.Config{
		Bounds:       bounds,
		Reservations: reservations,
		WriteTimeout: cfg.Claims.WriteTimeout,
	}, bus, logger)

	return &App{
		Config:      cfg,
		Store:       store,
		Bus:         bus,
		Loader:      loader,
		Coordinator: coordinator,
		Service:     claim.NewService(store, loader, coordinator, logger),
		closeStore:  closeStore,
		logger:      log,
	}, nil
}

// Close shuts the event bus and releases the store.
func (a *App) Close() error {
	a.Bus.Close()
	if err := a.closeStore(); err != nil {
		a.logger.Error("Failed to close claim store", "error", err)
		return err
	}
	return nil
}
