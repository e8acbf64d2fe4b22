package kube

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCluster overrides WorkloadReady and inherits panics for everything
// else, which these tests never touch.
type stubCluster struct {
	Client
	workloadReady func(ctx context.Context, namespace, name string) (bool, string, error)
}

func (s *stubCluster) WorkloadReady(ctx context.Context, namespace, name string) (bool, string, error) {
	return s.workloadReady(ctx, namespace, name)
}

func TestWaitForRollout_Succeeds(t *testing.T) {
	var calls atomic.Int32
	cluster := &stubCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			if calls.Add(1) < 3 {
				return false, "deployment infra/app: 0/1 replicas ready", nil
			}
			return true, "deployment infra/app: 1/1 replicas ready", nil
		},
	}

	err := WaitForRollout(context.Background(), cluster, "infra", "app", 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForRollout_Timeout(t *testing.T) {
	cluster := &stubCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			return false, "deployment infra/app: 0/1 replicas ready", nil
		},
	}

	err := WaitForRollout(context.Background(), cluster, "infra", "app", 5*time.Millisecond, 30*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for infra/app")
	assert.Contains(t, err.Error(), "0/1 replicas ready")
}

func TestWaitForRollout_TransientErrorsDoNotAbort(t *testing.T) {
	var calls atomic.Int32
	cluster := &stubCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			if calls.Add(1) < 3 {
				return false, "", errors.New("connection refused")
			}
			return true, "deployment infra/app: 1/1 replicas ready", nil
		},
	}

	err := WaitForRollout(context.Background(), cluster, "infra", "app", 5*time.Millisecond, time.Second)
	assert.NoError(t, err)
}

func TestWaitForRollout_Cancelled(t *testing.T) {
	cluster := &stubCluster{
		workloadReady: func(ctx context.Context, namespace, name string) (bool, string, error) {
			return false, "deployment infra/app: 0/1 replicas ready", nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	err := WaitForRollout(ctx, cluster, "infra", "app", 5*time.Millisecond, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}
