package claim

import (
	"errors"
	"fmt"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	apperrors "colony-server/internal/shared/errors"
)

type ValidationReason string

const (
	OutOfRange   ValidationReason = "out_of_range"
	MissingOwner ValidationReason = "missing_owner"
	MissingLabel ValidationReason = "missing_label"
)

// ValidationError is returned before any I/O when the request itself is bad.
type ValidationError struct {
	Reason     ValidationReason
	Coordinate coordinate.Coordinate
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case OutOfRange:
		return fmt.Sprintf("coordinate %s is outside the grid", e.Coordinate)
	case MissingOwner:
		return "owner is required"
	case MissingLabel:
		return "label is required"
	}
	return string(e.Reason)
}

func (e *ValidationError) AppType() apperrors.ErrorType {
	return apperrors.ErrorTypeValidation
}

type ConflictKind string

const (
	// KnownOccupied: the snapshot already showed the coordinate taken.
	KnownOccupied ConflictKind = "known_occupied"
	// RaceLost: the snapshot showed it free but another owner's write landed first.
	RaceLost ConflictKind = "race_lost"
	// OwnerSettled: the owner already holds a different coordinate.
	OwnerSettled ConflictKind = "owner_settled"
)

// ConflictError means the coordinate cannot be had by this owner. Callers
// should pick another coordinate rather than retry.
type ConflictError struct {
	Kind       ConflictKind
	Coordinate coordinate.Coordinate
	// Holder is the owner found at Coordinate, when known.
	Holder   colony.Owner
	Reserved bool
}

func (e *ConflictError) Error() string {
	switch {
	case e.Reserved:
		return fmt.Sprintf("coordinate %s is reserved", e.Coordinate)
	case e.Kind == OwnerSettled:
		return fmt.Sprintf("cannot claim %s: owner already holds a coordinate", e.Coordinate)
	case e.Kind == RaceLost:
		return fmt.Sprintf("coordinate %s was claimed by another player first", e.Coordinate)
	}
	return fmt.Sprintf("coordinate %s is already occupied", e.Coordinate)
}

func (e *ConflictError) AppType() apperrors.ErrorType {
	return apperrors.ErrorTypeConflict
}

// PersistenceError covers store failures, timeouts and any response that
// could not be classified. The claim may or may not have committed; re-read
// before deciding anything.
type PersistenceError struct {
	Op         string
	Coordinate coordinate.Coordinate
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Coordinate, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) AppType() apperrors.ErrorType {
	return apperrors.ErrorTypeExternal
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}
