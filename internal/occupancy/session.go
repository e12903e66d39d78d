package occupancy

import (
	"context"
	"sync"

	"colony-server/internal/colony"
)

// Session holds the index for one open view. It starts unloaded, and any
// failed refresh puts it back to unloaded so callers cannot act on old data.
type Session struct {
	loader *Loader

	mu    sync.Mutex
	index *Index
}

func NewSession(loader *Loader) *Session {
	return &Session{
		loader: loader,
		index:  Unloaded(loader.Bounds()),
	}
}

func (s *Session) Refresh(ctx context.Context) (*Index, error) {
	index, err := s.loader.LoadSnapshot(ctx)

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	return index, err
}

// Index returns the current snapshot and whether it is usable.
func (s *Session) Index() (*Index, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.index.Loaded()
}

// Apply records a claim committed by this session in its own copy of the
// index.
func (s *Session) Apply(claim colony.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index.Loaded() {
		s.index = s.index.With(claim)
	}
}

// Invalidate drops the snapshot. The next caller must Refresh.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = Unloaded(s.loader.Bounds())
}
