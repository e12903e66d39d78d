// Package memstore is a process-local RawStore. It versions every coordinate
// so CompareAndSetStore can guard its writes; it does not persist anything.
package memstore

import (
	"context"
	"sort"
	"sync"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
)

type slot struct {
	claim    *colony.Claim
	revision int64
}

type Store struct {
	mu       sync.RWMutex
	slots    map[coordinate.Coordinate]slot
	profiles map[colony.Owner]string
	homes    map[colony.Owner]coordinate.Coordinate
}

var _ colony.RawStore = (*Store)(nil)

func New() *Store {
	return &Store{
		slots:    make(map[coordinate.Coordinate]slot),
		profiles: make(map[colony.Owner]string),
		homes:    make(map[colony.Owner]coordinate.Coordinate),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) ListClaims(ctx context.Context) ([]colony.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]colony.Owner, 0, len(s.profiles))
	for owner := range s.profiles {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	records := make([]colony.Record, 0, len(owners))
	for _, owner := range owners {
		records = append(records, s.recordLocked(owner))
	}
	return records, nil
}

func (s *Store) ReadProfile(ctx context.Context, owner colony.Owner) (*colony.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.profiles[owner]; !ok {
		return nil, nil
	}
	record := s.recordLocked(owner)
	return &record, nil
}

// recordLocked builds owner's record; the caller holds mu.
func (s *Store) recordLocked(owner colony.Owner) colony.Record {
	record := colony.Record{Owner: owner, Label: s.profiles[owner]}
	if home, ok := s.homes[owner]; ok {
		claim := s.slots[home].claim
		g, sys, p := home.Galaxy, home.System, home.Position
		at := claim.ClaimedAt
		record.Label = claim.Label
		record.Galaxy, record.System, record.Position = &g, &sys, &p
		record.ClaimedAt = &at
	}
	return record
}

func (s *Store) ReadClaim(ctx context.Context, coord coordinate.Coordinate) (*colony.Claim, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.slots[coord]
	if current.claim == nil {
		return nil, current.revision, nil
	}
	claim := *current.claim
	return &claim, current.revision, nil
}

func (s *Store) ReadOwnerClaim(ctx context.Context, owner colony.Owner) (*colony.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	home, ok := s.homes[owner]
	if !ok {
		return nil, nil
	}
	claim := *s.slots[home].claim
	return &claim, nil
}

func (s *Store) WriteClaim(ctx context.Context, claim colony.Claim, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.slots[claim.Coordinate]
	if current.revision != expected || current.claim != nil {
		return colony.ErrRevisionMismatch
	}
	if _, settled := s.homes[claim.Owner]; settled {
		return colony.ErrOwnerSettled
	}

	stored := claim
	s.slots[claim.Coordinate] = slot{claim: &stored, revision: expected + 1}
	s.homes[claim.Owner] = claim.Coordinate
	s.profiles[claim.Owner] = claim.Label
	return nil
}

func (s *Store) EnsureProfile(ctx context.Context, owner colony.Owner, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[owner]; !ok {
		s.profiles[owner] = label
	}
	return nil
}
