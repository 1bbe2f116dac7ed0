package store

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"trustlink/pkg/platform/sentinel"
)

// retryConflicts re-runs op while it reports sentinel.ErrConflict. Any other
// error stops the loop and is returned as is; op may also return
// backoff.Permanent to stop explicitly. When retries run out the caller sees
// sentinel.ErrConflict.
func retryConflicts(ctx context.Context, maxRetries int, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = defaultRetryBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}
