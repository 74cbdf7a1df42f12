package wildweb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinearRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	policy := NewLinearRetryPolicy(3, time.Second)

	require.False(t, policy.ShouldRetry(nil, 1))
	require.True(t, policy.ShouldRetry(ErrIncompleteHarvest, 1))
	require.True(t, policy.ShouldRetry(errors.New("browser crashed"), 2))
	require.False(t, policy.ShouldRetry(ErrIncompleteHarvest, 3), "attempts are exhausted")
	require.False(t, policy.ShouldRetry(context.Canceled, 1))
	require.False(t, policy.ShouldRetry(context.DeadlineExceeded, 1))
}

func TestLinearRetryPolicyBackoffGrowsLinearly(t *testing.T) {
	t.Parallel()

	policy := NewLinearRetryPolicy(5, 5*time.Second)
	require.Equal(t, 5*time.Second, policy.Backoff(1))
	require.Equal(t, 10*time.Second, policy.Backoff(2))
	require.Equal(t, 25*time.Second, policy.Backoff(5))
	require.Equal(t, 5*time.Second, policy.Backoff(0), "attempts are 1-based")
}

func TestLinearRetryPolicyDefaults(t *testing.T) {
	t.Parallel()

	policy := NewLinearRetryPolicy(0, 0)
	require.True(t, policy.ShouldRetry(ErrIncompleteHarvest, 4))
	require.False(t, policy.ShouldRetry(ErrIncompleteHarvest, 5))
	require.Equal(t, 5*time.Second, policy.Backoff(1))
}
