package occupancy

import (
	"fmt"
	"os"

	"colony-server/internal/coordinate"

	"gopkg.in/yaml.v3"
)

// Reservation is a coordinate held by a non-player occupant. It is always
// reported occupied and can never be claimed.
type Reservation struct {
	coordinate.Coordinate `yaml:",inline"`
	Label                 string `json:"label" yaml:"label"`
}

type reservationFile struct {
	Reservations []Reservation `yaml:"reservations"`
}

// DefaultReservations is used when no reservations file is configured.
func DefaultReservations() []Reservation {
	return []Reservation{
		{Coordinate: coordinate.New(1, 1, 2), Label: "Pirate Base"},
	}
}

// LoadReservations reads a YAML file of the form
//
//	reservations:
//	  - {galaxy: 1, system: 1, position: 2, label: Pirate Base}
//
// An empty path yields DefaultReservations.
func LoadReservations(path string, bounds coordinate.Bounds) ([]Reservation, error) {
	if path == "" {
		return DefaultReservations(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reservations: %w", err)
	}

	var file reservationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse reservations %s: %w", path, err)
	}
	if err := ValidateReservations(file.Reservations, bounds); err != nil {
		return nil, fmt.Errorf("reservations %s: %w", path, err)
	}
	return file.Reservations, nil
}

func ValidateReservations(reservations []Reservation, bounds coordinate.Bounds) error {
	seen := make(map[coordinate.Coordinate]struct{}, len(reservations))
	for i, r := range reservations {
		if !bounds.Contains(r.Coordinate) {
			return fmt.Errorf("entry %d: %s is outside the grid", i, r.Coordinate)
		}
		if r.Label == "" {
			return fmt.Errorf("entry %d: label is required", i)
		}
		if _, dup := seen[r.Coordinate]; dup {
			return fmt.Errorf("entry %d: %s reserved twice", i, r.Coordinate)
		}
		seen[r.Coordinate] = struct{}{}
	}
	return nil
}
