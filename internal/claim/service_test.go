package claim

import (
	"context"
	"errors"
	"testing"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	apperrors "colony-server/internal/shared/errors"
)

// unlistableStore refuses full scans so single-owner reads must not need one.
type unlistableStore struct {
	colony.Store
}

func (unlistableStore) ListClaims(context.Context) ([]colony.Record, error) {
	return nil, errors.New("full scan not allowed")
}

func TestServiceProfileReadsOneOwner(t *testing.T) {
	ctx := context.Background()
	f := memBacked(t)
	if _, err := f.coordinator.TryClaim(ctx, f.snapshot(t), "alice", coordinate.New(3, 1, 4), "Alice"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	service := NewService(unlistableStore{Store: f.store}, f.loader, f.coordinator, discard())

	profile, err := service.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Home == nil || *profile.Home != coordinate.New(3, 1, 4) || profile.Label != "Alice" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	_, err = service.Profile(ctx, "nobody")
	if apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
		t.Fatalf("unknown owner: expected not found, got %v", err)
	}
}
