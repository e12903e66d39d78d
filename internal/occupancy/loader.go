package occupancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	apperrors "colony-server/internal/shared/errors"
)

var ErrSnapshotUnavailable = errors.New("occupancy snapshot unavailable")

// SnapshotError reports why a snapshot could not be built. It matches
// ErrSnapshotUnavailable with errors.Is.
type SnapshotError struct {
	Err error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSnapshotUnavailable, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

func (e *SnapshotError) Is(target error) bool {
	return target == ErrSnapshotUnavailable
}

func (e *SnapshotError) AppType() apperrors.ErrorType {
	return apperrors.ErrorTypeExternal
}

type LoaderConfig struct {
	Bounds       coordinate.Bounds
	Reservations []Reservation
	// Timeout bounds the ListClaims call. Zero means no extra deadline.
	Timeout time.Duration
}

type Loader struct {
	lister colony.Lister
	config LoaderConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLoader(lister colony.Lister, cfg LoaderConfig, logger *slog.Logger) *Loader {
	return &Loader{
		lister: lister,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Reservations returns the configured reservation overlay.
func (l *Loader) Reservations() []Reservation {
	return l.config.Reservations
}

func (l *Loader) Bounds() coordinate.Bounds {
	return l.config.Bounds
}

// LoadSnapshot reads every committed claim and overlays the reservations.
// On failure it returns an unloaded index together with a *SnapshotError;
// the index is never partially populated.
func (l *Loader) LoadSnapshot(ctx context.Context) (*Index, error) {
	logger := l.logger.With("component", "occupancy_loader", "operation", "load_snapshot")

	if l.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()
	}

	records, err := l.lister.ListClaims(ctx)
	if err != nil {
		logger.Error("Failed to list claims", "error", err)
		return Unloaded(l.config.Bounds), &SnapshotError{Err: err}
	}

	entries := make(map[coordinate.Coordinate]Entry, len(records)+len(l.config.Reservations))
	skipped := 0
	for _, record := range records {
		c, ok := record.Coordinate()
		if !ok {
			skipped++
			continue
		}
		if err := l.checkRecord(record, c, entries); err != nil {
			logger.Error("Malformed claim data", "error", err, "owner", record.Owner)
			return Unloaded(l.config.Bounds), &SnapshotError{Err: err}
		}
		entries[c] = Entry{Owner: record.Owner, Label: record.Label}
	}

	for _, r := range l.config.Reservations {
		if existing, ok := entries[r.Coordinate]; ok {
			logger.Warn("Claim found on reserved coordinate; reservation wins",
				"coordinate", r.Coordinate.String(), "owner", existing.Owner)
		}
		entries[r.Coordinate] = Entry{Label: r.Label, Reserved: true}
	}

	logger.Debug("Snapshot built",
		"claims", len(records)-skipped,
		"profiles_without_claim", skipped,
		"reservations", len(l.config.Reservations),
	)

	return &Index{
		bounds:  l.config.Bounds,
		entries: entries,
		loaded:  true,
		builtAt: l.now(),
	}, nil
}

func (l *Loader) checkRecord(record colony.Record, c coordinate.Coordinate, seen map[coordinate.Coordinate]Entry) error {
	if record.Owner == "" {
		return fmt.Errorf("claim at %s has no owner", c)
	}
	if !l.config.Bounds.Contains(c) {
		return fmt.Errorf("claim by %s at %s is outside the grid", record.Owner, c)
	}
	if prev, dup := seen[c]; dup {
		return fmt.Errorf("coordinate %s held by both %s and %s", c, prev.Owner, record.Owner)
	}
	return nil
}
