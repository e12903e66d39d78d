package claim

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	"colony-server/internal/occupancy"
	apperrors "colony-server/internal/shared/errors"
)

// Overview summarizes the grid for clients opening the galaxy view.
type Overview struct {
	Bounds       coordinate.Bounds       `json:"bounds"`
	Reservations []occupancy.Reservation `json:"reservations"`
	Occupied     int                     `json:"occupied"`
	SnapshotAt   time.Time               `json:"snapshot_at"`
}

// SystemView is one (galaxy, system) pair with every position listed.
type SystemView struct {
	Galaxy int              `json:"galaxy"`
	System int              `json:"system"`
	Slots  []occupancy.Slot `json:"slots"`
	// SnapshotAt is when the occupancy behind Slots was read.
	SnapshotAt time.Time `json:"snapshot_at"`
}

// Rejection explains a refused claim. Suggestion comes from a snapshot
// taken after the failure and is nil when no reload succeeded or the grid
// is full.
type Rejection struct {
	Reason     string                 `json:"reason"`
	Holder     colony.Owner           `json:"holder,omitempty"`
	Suggestion *coordinate.Coordinate `json:"suggestion,omitempty"`
}

// Service ties the loader and coordinator together for request handlers,
// which hold no view state between requests: every view opens a fresh
// snapshot.
type Service struct {
	store       colony.Store
	loader      *occupancy.Loader
	coordinator *Coordinator
	logger      *slog.Logger
}

func NewService(store colony.Store, loader *occupancy.Loader, coordinator *Coordinator, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		loader:      loader,
		coordinator: coordinator,
		logger:      logger,
	}
}

func (s *Service) Snapshot(ctx context.Context) (*occupancy.Index, error) {
	return s.loader.LoadSnapshot(ctx)
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	index, err := s.loader.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Bounds:       index.Bounds(),
		Reservations: s.loader.Reservations(),
		Occupied:     index.Len(),
		SnapshotAt:   index.BuiltAt(),
	}, nil
}

func (s *Service) System(ctx context.Context, galaxy, system int) (*SystemView, error) {
	if !s.loader.Bounds().ContainsSystem(galaxy, system) {
		return nil, apperrors.NotFoundf("system %d:%d does not exist", galaxy, system)
	}

	index, err := s.loader.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &SystemView{
		Galaxy:     galaxy,
		System:     system,
		Slots:      index.System(galaxy, system),
		SnapshotAt: index.BuiltAt(),
	}, nil
}

// Claim opens a session for the request and tries to commit coord for owner.
// A refused claim comes back with a Rejection built from a fresh reload.
func (s *Service) Claim(ctx context.Context, owner colony.Owner, label string, coord coordinate.Coordinate) (*colony.Claim, *Rejection, error) {
	logger := s.logger.With("component", "claim_service", "operation", "claim", "owner", owner)

	session := occupancy.NewSession(s.loader)
	index, err := session.Refresh(ctx)
	if err != nil {
		return nil, nil, err
	}

	claim, err := s.coordinator.TryClaim(ctx, index, owner, coord, label)
	if err == nil {
		return claim, nil, nil
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		return nil, nil, err
	}

	rejection := &Rejection{Reason: string(conflict.Kind), Holder: conflict.Holder}
	if conflict.Reserved {
		rejection.Reason = "reserved"
	}

	fresh, reloadErr := session.Refresh(ctx)
	if reloadErr != nil {
		logger.Warn("Reload after conflict failed", "error", reloadErr)
		return nil, rejection, err
	}
	if next, ok := fresh.Suggest(coord); ok && conflict.Kind != OwnerSettled {
		rejection.Suggestion = &next
	}
	return nil, rejection, err
}

// EnsureProfile records an owner that has not colonized yet.
func (s *Service) EnsureProfile(ctx context.Context, owner colony.Owner, label string) error {
	if owner == "" {
		return apperrors.Validation("owner is required")
	}
	if label == "" {
		return apperrors.Validation("label is required")
	}
	if err := s.store.EnsureProfile(ctx, owner, label); err != nil {
		return apperrors.WrapExternal("failed to save profile", err)
	}
	return nil
}

// Profile is an owner as the store knows it. Home is nil until the owner
// colonizes.
type Profile struct {
	Owner     colony.Owner           `json:"owner"`
	Label     string                 `json:"label"`
	Home      *coordinate.Coordinate `json:"home,omitempty"`
	ClaimedAt *time.Time             `json:"claimed_at,omitempty"`
}

func profileFromRecord(r colony.Record) Profile {
	p := Profile{Owner: r.Owner, Label: r.Label, ClaimedAt: r.ClaimedAt}
	if c, ok := r.Coordinate(); ok {
		p.Home = &c
	}
	return p
}

func (s *Service) Profiles(ctx context.Context) ([]Profile, error) {
	records, err := s.store.ListClaims(ctx)
	if err != nil {
		return nil, apperrors.WrapExternal("failed to list profiles", err)
	}

	profiles := make([]Profile, 0, len(records))
	for _, r := range records {
		profiles = append(profiles, profileFromRecord(r))
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Owner < profiles[j].Owner })
	return profiles, nil
}

func (s *Service) Profile(ctx context.Context, owner colony.Owner) (*Profile, error) {
	record, err := s.store.GetProfile(ctx, owner)
	if err != nil {
		return nil, apperrors.WrapExternal("failed to load profile", err)
	}
	if record == nil {
		return nil, apperrors.NotFoundf("no profile for %s", owner)
	}
	p := profileFromRecord(*record)
	return &p, nil
}
