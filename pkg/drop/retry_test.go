package drop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int, retryable func(error) bool) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		RetryableError: retryable,
	}
}

func TestRetryOperation(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		maxRetries    int
		retryable     bool
		wantErr       bool
		expectedCalls int
	}{
		{
			name:          "success on first attempt",
			failures:      0,
			maxRetries:    3,
			retryable:     true,
			expectedCalls: 1,
		},
		{
			name:          "success after retries",
			failures:      2,
			maxRetries:    3,
			retryable:     true,
			expectedCalls: 3,
		},
		{
			name:          "failure after max retries",
			failures:      10,
			maxRetries:    3,
			retryable:     true,
			wantErr:       true,
			expectedCalls: 4, // initial + 3 retries
		},
		{
			name:          "zero max retries means single attempt",
			failures:      1,
			maxRetries:    0,
			retryable:     true,
			wantErr:       true,
			expectedCalls: 1,
		},
		{
			name:          "non-retryable error stops immediately",
			failures:      10,
			maxRetries:    3,
			retryable:     false,
			wantErr:       true,
			expectedCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			operation := func() error {
				calls++
				if calls <= tt.failures {
					return errors.New("transfer failed")
				}
				return nil
			}

			config := fastRetryConfig(tt.maxRetries, func(error) bool { return tt.retryable })
			err := RetryOperation(context.Background(), config, operation)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestRetryOperationCancellation(t *testing.T) {
	t.Run("cancelled during backoff wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		operation := func() error {
			calls++
			if calls == 2 {
				cancel()
			}
			return errors.New("transfer failed")
		}

		config := fastRetryConfig(5, func(error) bool { return true })
		err := RetryOperation(ctx, config, operation)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancelled before first attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		config := fastRetryConfig(5, func(error) bool { return true })
		err := RetryOperation(ctx, config, func() error { calls++; return nil })
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(0, config))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(1, config))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(2, config))
	// Capped at MaxDelay from the fourth retry on.
	assert.Equal(t, 1*time.Second, calculateDelay(5, config))
}
