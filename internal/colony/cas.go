package colony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"colony-server/internal/coordinate"
)

// RawStore is a backend that cannot express "insert if absent" directly but
// can version each coordinate and refuse a write whose expected revision is
// stale.
type RawStore interface {
	Lister
	// ReadClaim returns the claim at coord and its revision; revision 0 with a
	// nil claim means the coordinate was never written.
	ReadClaim(ctx context.Context, coord coordinate.Coordinate) (*Claim, int64, error)
	ReadOwnerClaim(ctx context.Context, owner Owner) (*Claim, error)
	// WriteClaim stores claim only if the coordinate is still at expected and
	// claim.Owner holds no other coordinate, checked atomically with the
	// revision. It returns ErrRevisionMismatch for a stale revision and
	// ErrOwnerSettled when the owner already holds a claim.
	WriteClaim(ctx context.Context, claim Claim, expected int64) error
	EnsureProfile(ctx context.Context, owner Owner, label string) error
	ReadProfile(ctx context.Context, owner Owner) (*Record, error)
}

// CompareAndSetStore adapts a RawStore to Store by reading the coordinate's
// revision immediately before a revision-guarded write.
type CompareAndSetStore struct {
	raw    RawStore
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*CompareAndSetStore)(nil)

func NewCompareAndSetStore(raw RawStore, logger *slog.Logger) *CompareAndSetStore {
	return &CompareAndSetStore{
		raw:    raw,
		logger: logger,
		now:    time.Now,
	}
}

func (s *CompareAndSetStore) ListClaims(ctx context.Context) ([]Record, error) {
	return s.raw.ListClaims(ctx)
}

// Ping reports the raw store's connectivity when it can tell.
func (s *CompareAndSetStore) Ping(ctx context.Context) error {
	if p, ok := s.raw.(Pinger); ok {
		return p.Ping(ctx)
	}
	return ctx.Err()
}

func (s *CompareAndSetStore) GetClaim(ctx context.Context, coord coordinate.Coordinate) (*Claim, error) {
	claim, _, err := s.raw.ReadClaim(ctx, coord)
	return claim, err
}

func (s *CompareAndSetStore) GetProfile(ctx context.Context, owner Owner) (*Record, error) {
	return s.raw.ReadProfile(ctx, owner)
}

func (s *CompareAndSetStore) EnsureProfile(ctx context.Context, owner Owner, label string) error {
	return s.raw.EnsureProfile(ctx, owner, label)
}

func (s *CompareAndSetStore) InsertClaim(ctx context.Context, coord coordinate.Coordinate, owner Owner, label string) (*Claim, error) {
	logger := s.logger.With(
		"component", "cas_store",
		"operation", "insert_claim",
		"coordinate", coord.String(),
		"owner", owner,
	)

	existing, ownerErr := s.raw.ReadOwnerClaim(ctx, owner)
	if ownerErr != nil {
		return nil, fmt.Errorf("failed to read owner claim: %w", ownerErr)
	}
	if existing != nil {
		logger.Debug("Owner already holds a coordinate", "held", existing.Coordinate.String())
		return nil, ErrOwnerSettled
	}

	current, revision, err := s.raw.ReadClaim(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("failed to read coordinate: %w", err)
	}
	if current != nil {
		logger.Debug("Coordinate already held", "holder", current.Owner)
		return nil, ErrCoordinateTaken
	}

	claim := Claim{
		Coordinate: coord,
		Owner:      owner,
		Label:      label,
		ClaimedAt:  s.now().UTC(),
	}
	if err := s.raw.WriteClaim(ctx, claim, revision); err != nil {
		if errors.Is(err, ErrRevisionMismatch) {
			logger.Info("Coordinate changed between read and write")
			return nil, ErrCoordinateTaken
		}
		if errors.Is(err, ErrOwnerSettled) {
			logger.Info("Owner settled elsewhere between read and write")
			return nil, ErrOwnerSettled
		}
		return nil, fmt.Errorf("failed to write claim: %w", err)
	}

	logger.Debug("Claim written", "revision", revision+1)
	return &claim, nil
}
