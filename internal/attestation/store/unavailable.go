package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"trustlink/pkg/platform/sentinel"
)

// markUnavailable tags substrate connectivity failures with
// sentinel.ErrUnavailable. Context cancellation and deadlines pass through
// untouched.
func markUnavailable(err error) error {
	if err == nil || errors.Is(err, sentinel.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, redis.ErrClosed),
		errors.Is(err, redis.ErrPoolTimeout):
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
