package colony

import (
	"time"

	"colony-server/internal/coordinate"
)

// Owner is the opaque player identifier handed out by the identity provider.
type Owner string

func (o Owner) String() string {
	return string(o)
}

// Claim is a committed home coordinate for one owner.
type Claim struct {
	Coordinate coordinate.Coordinate `json:"coordinate"`
	Owner      Owner                 `json:"owner"`
	Label      string                `json:"label"`
	ClaimedAt  time.Time             `json:"claimed_at"`
}

// Record is one row as returned by ListClaims. A profile that never
// colonized has nil coordinate fields.
type Record struct {
	Owner     Owner
	Label     string
	Galaxy    *int
	System    *int
	Position  *int
	ClaimedAt *time.Time
}

// Coordinate returns the claimed coordinate, or false when any component is
// missing.
func (r Record) Coordinate() (coordinate.Coordinate, bool) {
	if r.Galaxy == nil || r.System == nil || r.Position == nil {
		return coordinate.Coordinate{}, false
	}
	return coordinate.New(*r.Galaxy, *r.System, *r.Position), true
}
