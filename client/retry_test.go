package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landverify/client-sdk-go/types"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network code", types.NewError(types.CodeNetwork, "x"), true},
		{"submit code", types.NewError(types.CodeSubmit, "x"), false},
		{"timeout code", types.TimeoutError("TX", 4), false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"server error", errors.New("HTTP 502 Bad Gateway"), true},
		{"rate limit", errors.New("HTTP 429 Too Many Requests"), true},
		{"bad request", errors.New("HTTP 400 Bad Request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestIsRetryableHTTPError(t *testing.T) {
	assert.True(t, isRetryableHTTPError(500))
	assert.True(t, isRetryableHTTPError(429))
	assert.False(t, isRetryableHTTPError(404))
	assert.False(t, isRetryableHTTPError(200))
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var retried []int
		cfg := fastRetry()
		cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

		calls := 0
		err := Retry(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return errors.New("connection reset by peer")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastRetry(), func() error {
			calls++
			return errors.New("HTTP 503")
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls)
		assert.Contains(t, err.Error(), "retry failed after 4 attempts")
	})

	t.Run("permanent error is returned as is", func(t *testing.T) {
		calls := 0
		want := types.ValidationError("bad")
		err := Retry(context.Background(), fastRetry(), func() error {
			calls++
			return want
		})
		assert.Same(t, want, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil config runs once", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), nil, func() error {
			calls++
			return errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		cfg := fastRetry()
		cfg.InitialDelay = 50
		err := Retry(ctx, cfg, func() error {
			calls++
			cancel()
			return errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
