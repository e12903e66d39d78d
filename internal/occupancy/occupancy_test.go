package occupancy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	apperrors "colony-server/internal/shared/errors"
)

type fakeLister struct {
	records []colony.Record
	err     error
	calls   int
}

func (f *fakeLister) ListClaims(ctx context.Context) ([]colony.Record, error) {
	f.calls++
	return f.records, f.err
}

func record(owner string, c coordinate.Coordinate) colony.Record {
	g, s, p := c.Galaxy, c.System, c.Position
	return colony.Record{Owner: colony.Owner(owner), Label: owner, Galaxy: &g, System: &s, Position: &p}
}

func newLoader(lister colony.Lister) *Loader {
	return NewLoader(lister, LoaderConfig{
		Bounds:       coordinate.DefaultBounds(),
		Reservations: DefaultReservations(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSnapshotFidelity(t *testing.T) {
	lister := &fakeLister{records: []colony.Record{
		record("alice", coordinate.New(1, 1, 3)),
		record("bob", coordinate.New(1, 1, 7)),
	}}

	index, err := newLoader(lister).LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !index.Loaded() {
		t.Fatal("index should be loaded")
	}
	if index.BuiltAt().IsZero() {
		t.Fatal("loaded index should record when it was built")
	}

	want := map[int]bool{2: true, 3: true, 7: true}
	for p := 1; p <= 15; p++ {
		c := coordinate.New(1, 1, p)
		if got := index.Occupied(c); got != want[p] {
			t.Fatalf("Occupied(%s) = %v, want %v", c, got, want[p])
		}
	}
	if !index.IsReserved(coordinate.New(1, 1, 2)) {
		t.Fatal("1:1:2 should be reserved")
	}
	if index.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", index.Len())
	}
}

func TestSnapshotSkipsProfilesWithoutCoordinate(t *testing.T) {
	g := 4
	lister := &fakeLister{records: []colony.Record{
		{Owner: "nomad", Label: "Nomad"},
		{Owner: "partial", Label: "Partial", Galaxy: &g},
		record("alice", coordinate.New(3, 3, 3)),
	}}

	index, err := newLoader(lister).LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if index.Len() != 2 {
		t.Fatalf("expected alice plus the reservation, got %d entries", index.Len())
	}
}

func TestSnapshotFailureLeavesIndexEmpty(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}

	index, err := newLoader(lister).LoadSnapshot(context.Background())
	if !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
	if apperrors.GetType(err) != apperrors.ErrorTypeExternal {
		t.Fatalf("expected external error type, got %s", apperrors.GetType(err))
	}
	if index.Loaded() || index.Len() != 0 {
		t.Fatalf("failed snapshot must be unloaded and empty, got loaded=%v len=%d", index.Loaded(), index.Len())
	}
	if index.IsReserved(coordinate.New(1, 1, 2)) {
		t.Fatal("failed snapshot must not carry the reservation overlay either")
	}
}

func TestSnapshotRejectsMalformedData(t *testing.T) {
	tests := []struct {
		name    string
		records []colony.Record
	}{
		{"out of bounds", []colony.Record{record("alice", coordinate.New(1, 1, 16))}},
		{"missing owner", []colony.Record{record("", coordinate.New(1, 1, 4))}},
		{"duplicate coordinate", []colony.Record{
			record("alice", coordinate.New(1, 1, 4)),
			record("bob", coordinate.New(1, 1, 4)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, err := newLoader(&fakeLister{records: tt.records}).LoadSnapshot(context.Background())
			if !errors.Is(err, ErrSnapshotUnavailable) {
				t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
			}
			if index.Len() != 0 {
				t.Fatalf("expected empty index, got %d entries", index.Len())
			}
		})
	}
}

func TestReservationOverlayWins(t *testing.T) {
	lister := &fakeLister{records: []colony.Record{record("squatter", coordinate.New(1, 1, 2))}}

	index, err := newLoader(lister).LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e, ok := index.Lookup(coordinate.New(1, 1, 2))
	if !ok || !e.Reserved || e.Label != "Pirate Base" {
		t.Fatalf("expected pirate base reservation, got %+v (ok=%v)", e, ok)
	}
}

func TestWithDoesNotMutate(t *testing.T) {
	index, err := newLoader(&fakeLister{}).LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c := coordinate.New(5, 5, 5)

	next := index.With(colony.Claim{Coordinate: c, Owner: "alice", Label: "Alice"})
	if index.Occupied(c) {
		t.Fatal("original index must not change")
	}
	if !next.Occupied(c) {
		t.Fatal("copy should record the claim")
	}

	kept := index.With(colony.Claim{Coordinate: coordinate.New(1, 1, 2), Owner: "alice"})
	if !kept.IsReserved(coordinate.New(1, 1, 2)) {
		t.Fatal("With must not overwrite a reservation")
	}
}

func TestSystemAndSuggest(t *testing.T) {
	bounds := coordinate.Bounds{Galaxies: 1, Systems: 2, Positions: 2}
	lister := &fakeLister{records: []colony.Record{
		record("a", coordinate.New(1, 1, 1)),
		record("b", coordinate.New(1, 1, 2)),
	}}
	loader := NewLoader(lister, LoaderConfig{Bounds: bounds}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	index, err := loader.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	slots := index.System(1, 1)
	if len(slots) != 2 || !slots[0].Occupied || slots[0].Entry.Owner != "a" {
		t.Fatalf("unexpected slots %+v", slots)
	}
	if index.System(2, 1) != nil {
		t.Fatal("off-grid system should return nil")
	}
	if _, ok := index.FirstFree(1, 1); ok {
		t.Fatal("system 1 is full")
	}

	got, ok := index.Suggest(coordinate.New(1, 1, 1))
	if !ok || got != coordinate.New(1, 2, 1) {
		t.Fatalf("expected suggestion 1:2:1, got %v (ok=%v)", got, ok)
	}
	if _, ok := Unloaded(bounds).Suggest(coordinate.New(1, 1, 1)); ok {
		t.Fatal("unloaded index must not suggest anything")
	}
}

func TestLoadReservations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reservations.yaml")
	content := `reservations:
  - galaxy: 1
    system: 1
    position: 2
    label: Pirate Base
  - {galaxy: 4, system: 200, position: 15, label: Event Boss}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadReservations(path, coordinate.DefaultBounds())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[1].Coordinate != coordinate.New(4, 200, 15) || got[1].Label != "Event Boss" {
		t.Fatalf("unexpected reservations %+v", got)
	}

	defaults, err := LoadReservations("", coordinate.DefaultBounds())
	if err != nil || len(defaults) != 1 || defaults[0].Coordinate != coordinate.New(1, 1, 2) {
		t.Fatalf("expected default pirate base, got %+v (err=%v)", defaults, err)
	}
}

func TestLoadReservationsRejectsOffGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.yaml")
	if err := os.WriteFile(path, []byte("reservations:\n  - {galaxy: 1, system: 1, position: 99, label: X}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadReservations(path, coordinate.DefaultBounds()); err == nil {
		t.Fatal("expected off-grid reservation to be rejected")
	}
}

func TestSessionLifecycle(t *testing.T) {
	lister := &fakeLister{}
	session := NewSession(newLoader(lister))

	if _, ok := session.Index(); ok {
		t.Fatal("new session should start unloaded")
	}
	if _, err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	c := coordinate.New(2, 2, 2)
	session.Apply(colony.Claim{Coordinate: c, Owner: "me"})
	if index, ok := session.Index(); !ok || !index.Occupied(c) {
		t.Fatal("applied claim should be visible in the session index")
	}

	lister.err = errors.New("down")
	if _, err := session.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if _, ok := session.Index(); ok {
		t.Fatal("failed refresh must leave the session unloaded")
	}

	lister.err = nil
	session.Refresh(context.Background())
	session.Invalidate()
	if _, ok := session.Index(); ok {
		t.Fatal("invalidated session should be unloaded")
	}
}
