package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"trustlink/pkg/platform/sentinel"
)

func TestMarkUnavailable(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"nil", nil, false},
		{"dial failure", fmt.Errorf("read admin: %w", dial), true},
		{"bad driver connection", driver.ErrBadConn, true},
		{"closed redis client", redis.ErrClosed, true},
		{"redis pool exhausted", redis.ErrPoolTimeout, true},
		{"deadline", fmt.Errorf("read admin: %w", context.DeadlineExceeded), false},
		{"cancelled", context.Canceled, false},
		{"not found", sentinel.ErrNotFound, false},
		{"conflict", sentinel.ErrConflict, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := markUnavailable(tt.err)
			assert.Equal(t, tt.unavailable, errors.Is(got, sentinel.ErrUnavailable))
			if tt.err != nil {
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}
