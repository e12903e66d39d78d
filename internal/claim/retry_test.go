package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"colony-server/internal/colony"

	"github.com/cenkalti/backoff/v5"
)

func TestRetryPersistenceRetriesTransient(t *testing.T) {
	attempts := 0
	claim, err := retry(context.Background(), backoff.NewConstantBackOff(time.Millisecond), 5, func(ctx context.Context) (*colony.Claim, error) {
		attempts++
		if attempts < 3 {
			return nil, &PersistenceError{Op: "insert", Err: errors.New("timeout")}
		}
		return &colony.Claim{Owner: "alice"}, nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if claim.Owner != "alice" || attempts != 3 {
		t.Fatalf("expected success on attempt 3, got %d attempts", attempts)
	}
}

func TestRetryPersistenceStopsOnConflict(t *testing.T) {
	attempts := 0
	_, err := retry(context.Background(), backoff.NewConstantBackOff(time.Millisecond), 5, func(ctx context.Context) (*colony.Claim, error) {
		attempts++
		return nil, &ConflictError{Kind: RaceLost}
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("conflicts must not be retried, got %d attempts", attempts)
	}
}

func TestRetryPersistenceGivesUp(t *testing.T) {
	attempts := 0
	_, err := retry(context.Background(), backoff.NewConstantBackOff(time.Millisecond), 3, func(ctx context.Context) (*colony.Claim, error) {
		attempts++
		return nil, &PersistenceError{Op: "insert", Err: errors.New("down")}
	})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}
