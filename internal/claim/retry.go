package claim

import (
	"context"
	"errors"
	"time"

	"colony-server/internal/colony"

	"github.com/cenkalti/backoff/v5"
)

// RetryPersistence runs attempt until it succeeds, fails with anything other
// than a *PersistenceError, or maxTries is reached.
func RetryPersistence(ctx context.Context, maxTries uint, attempt func(ctx context.Context) (*colony.Claim, error)) (*colony.Claim, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return retry(ctx, b, maxTries, attempt)
}

func retry(ctx context.Context, b backoff.BackOff, maxTries uint, attempt func(ctx context.Context) (*colony.Claim, error)) (*colony.Claim, error) {
	return backoff.Retry(ctx, func() (*colony.Claim, error) {
		claim, err := attempt(ctx)
		if err == nil {
			return claim, nil
		}
		var perr *PersistenceError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
}
