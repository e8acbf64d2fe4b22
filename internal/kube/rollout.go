package kube

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultRolloutInterval = 5 * time.Second
	defaultRolloutTimeout  = 5 * time.Minute
)

// WaitForRollout polls until the named workload reports a completed rollout
// or the timeout elapses. Transient API errors do not abort the wait; the
// last observed state is included in the timeout error.
func WaitForRollout(ctx context.Context, client Client, namespace, name string, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = defaultRolloutInterval
	}
	if timeout <= 0 {
		timeout = defaultRolloutTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lastState := "no status observed yet"
	check := func() (bool, error) {
		ready, message, err := client.WorkloadReady(waitCtx, namespace, name)
		if err != nil {
			lastState = err.Error()
			return false, nil
		}
		lastState = message
		return ready, nil
	}

	if ready, err := check(); err != nil {
		return err
	} else if ready {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("timeout waiting for %s/%s to roll out: %s", namespace, name, lastState)
			}
			return fmt.Errorf("wait for %s/%s cancelled: %w", namespace, name, ctx.Err())
		case <-ticker.C:
			if ready, err := check(); err != nil {
				return err
			} else if ready {
				return nil
			}
		}
	}
}
