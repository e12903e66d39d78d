// Package claim commits home coordinates. The coordinator checks a request
// against a snapshot, then relies on the store's conditional insert as the
// only serialization point between competing owners.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	"colony-server/internal/occupancy"
	"colony-server/internal/shared/events"
)

const EventClaimCommitted = "claim.committed"

// Committed is the payload of EventClaimCommitted.
type Committed struct {
	Claim colony.Claim `json:"claim"`
	// Recovered is set when the claim was found already committed while
	// resolving a conflict, typically after a retried write.
	Recovered bool `json:"recovered,omitempty"`
}

type Config struct {
	Bounds       coordinate.Bounds
	Reservations []occupancy.Reservation
	// WriteTimeout bounds each store call. Zero leaves the caller's deadline.
	WriteTimeout time.Duration
}

type Coordinator struct {
	store    colony.Store
	config   Config
	reserved map[coordinate.Coordinate]string
	bus      *events.Bus
	logger   *slog.Logger
}

// NewCoordinator builds a coordinator. bus may be nil.
func NewCoordinator(store colony.Store, cfg Config, bus *events.Bus, logger *slog.Logger) *Coordinator {
	reserved := make(map[coordinate.Coordinate]string, len(cfg.Reservations))
	for _, r := range cfg.Reservations {
		reserved[r.Coordinate] = r.Label
	}
	return &Coordinator{
		store:    store,
		config:   cfg,
		reserved: reserved,
		bus:      bus,
		logger:   logger,
	}
}

// TryClaim attempts to make coord the owner's home. index is read but never
// modified; on success the caller updates its own copy.
//
// Errors are *ValidationError, *ConflictError or *PersistenceError. Conflicts
// are final for this coordinate. Persistence errors may be retried with the
// same arguments: a retry that finds the owner's own claim succeeds.
func (c *Coordinator) TryClaim(ctx context.Context, index *occupancy.Index, owner colony.Owner, coord coordinate.Coordinate, label string) (*colony.Claim, error) {
	logger := c.logger.With(
		"component", "claim_coordinator",
		"operation", "try_claim",
		"owner", owner,
		"coordinate", coord.String(),
	)

	if err := c.validate(owner, coord, label); err != nil {
		logger.Debug("Claim rejected", "reason", err.Reason)
		return nil, err
	}

	if _, ok := c.reserved[coord]; ok || index.IsReserved(coord) {
		logger.Debug("Claim targets a reservation")
		return nil, &ConflictError{Kind: KnownOccupied, Coordinate: coord, Reserved: true}
	}

	if !index.Loaded() {
		logger.Warn("Claim attempted without a loaded snapshot")
		return nil, &PersistenceError{Op: "snapshot", Coordinate: coord, Err: occupancy.ErrSnapshotUnavailable}
	}

	// A snapshot taken after our own earlier attempt landed shows us as the
	// holder; let the store confirm instead of reporting a conflict.
	if entry, ok := index.Lookup(coord); ok && entry.Owner != owner {
		logger.Debug("Snapshot shows coordinate occupied", "holder", entry.Owner)
		return nil, &ConflictError{Kind: KnownOccupied, Coordinate: coord, Holder: entry.Owner}
	}

	writeCtx, cancel := c.withTimeout(ctx)
	claim, err := c.store.InsertClaim(writeCtx, coord, owner, label)
	cancel()

	switch {
	case err == nil:
		logger.Info("Claim committed")
		c.publish(*claim, false)
		return claim, nil

	case errors.Is(err, colony.ErrCoordinateTaken), errors.Is(err, colony.ErrOwnerSettled):
		return c.resolveConflict(ctx, logger, owner, coord, err)

	default:
		logger.Error("Claim write failed", "error", err)
		return nil, &PersistenceError{Op: "insert", Coordinate: coord, Err: err}
	}
}

// resolveConflict re-reads the coordinate after a refused insert to tell a
// lost race from our own earlier write.
func (c *Coordinator) resolveConflict(ctx context.Context, logger *slog.Logger, owner colony.Owner, coord coordinate.Coordinate, cause error) (*colony.Claim, error) {
	readCtx, cancel := c.withTimeout(ctx)
	holder, err := c.store.GetClaim(readCtx, coord)
	cancel()
	if err != nil {
		logger.Error("Failed to re-read contested coordinate", "error", err, "cause", cause)
		return nil, &PersistenceError{Op: "reread", Coordinate: coord, Err: err}
	}

	switch {
	case holder != nil && holder.Owner == owner:
		logger.Info("Claim already committed by this owner")
		c.publish(*holder, true)
		return holder, nil

	case holder != nil:
		logger.Info("Claim lost race", "holder", holder.Owner)
		return nil, &ConflictError{Kind: RaceLost, Coordinate: coord, Holder: holder.Owner}

	case errors.Is(cause, colony.ErrOwnerSettled):
		logger.Info("Owner already settled elsewhere")
		return nil, &ConflictError{Kind: OwnerSettled, Coordinate: coord, Holder: owner}

	default:
		logger.Error("Store refused insert but coordinate reads free", "cause", cause)
		return nil, &PersistenceError{
			Op:         "insert",
			Coordinate: coord,
			Err:        fmt.Errorf("ambiguous store response: %w", cause),
		}
	}
}

func (c *Coordinator) validate(owner colony.Owner, coord coordinate.Coordinate, label string) *ValidationError {
	if owner == "" {
		return &ValidationError{Reason: MissingOwner, Coordinate: coord}
	}
	if label == "" {
		return &ValidationError{Reason: MissingLabel, Coordinate: coord}
	}
	if !c.config.Bounds.Contains(coord) {
		return &ValidationError{Reason: OutOfRange, Coordinate: coord}
	}
	return nil
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.WriteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.WriteTimeout)
}

func (c *Coordinator) publish(claim colony.Claim, recovered bool) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.New(EventClaimCommitted, Committed{Claim: claim, Recovered: recovered}))
}
