package colony

import (
	"context"

	"colony-server/internal/coordinate"
)

// Lister returns every committed claim and claim-less profile.
type Lister interface {
	ListClaims(ctx context.Context) ([]Record, error)
}

// Store is the persistence collaborator. InsertClaim must be a single
// conditional write: it fails with ErrCoordinateTaken when the coordinate is
// held and ErrOwnerSettled when the owner already holds one. Nothing in the
// system writes a claim any other way.
type Store interface {
	Lister
	GetClaim(ctx context.Context, coord coordinate.Coordinate) (*Claim, error)
	// GetProfile returns the owner's record, or nil when the owner is unknown.
	GetProfile(ctx context.Context, owner Owner) (*Record, error)
	InsertClaim(ctx context.Context, coord coordinate.Coordinate, owner Owner, label string) (*Claim, error)
	EnsureProfile(ctx context.Context, owner Owner, label string) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
