package colony

import "errors"

var (
	// ErrCoordinateTaken is returned by InsertClaim when another row already
	// holds the coordinate.
	ErrCoordinateTaken = errors.New("coordinate already claimed")
	// ErrOwnerSettled is returned by InsertClaim when the owner already holds
	// a coordinate.
	ErrOwnerSettled = errors.New("owner already holds a coordinate")
	// ErrRevisionMismatch is returned by RawStore.WriteClaim when the stored
	// revision moved since it was read.
	ErrRevisionMismatch = errors.New("claim revision changed")
)
