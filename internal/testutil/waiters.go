package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/aerospike-go/pkg/cluster"
)

// Waiter polls a condition at a fixed interval until it becomes true or
// the waiter's timeout elapses.
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter builds a Waiter with the given timeout and polling interval.
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{timeout: timeout, interval: interval}
}

// DefaultWaiter returns a waiter sized for a fake node's tend loop: a
// one-second timeout polled every five milliseconds.
func DefaultWaiter() *Waiter {
	return NewWaiter(1*time.Second, 5*time.Millisecond)
}

// WaitFor blocks until condition returns true or the waiter's timeout
// elapses, returning an error naming description in the latter case.
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if condition() {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForTable waits for a Cluster to have built a partition table for
// namespace, the signal that at least one tend pass has completed.
func (w *Waiter) WaitForTable(ctx context.Context, clu *cluster.Cluster, namespace string) error {
	return w.WaitFor(ctx, func() bool {
		return clu.Table(namespace) != nil
	}, fmt.Sprintf("partition table for namespace %q", namespace))
}

// WaitForNodeCount waits for a Cluster's active node set to reach count.
func (w *Waiter) WaitForNodeCount(ctx context.Context, clu *cluster.Cluster, count int) error {
	return w.WaitFor(ctx, func() bool {
		return len(clu.ActiveNodes()) == count
	}, fmt.Sprintf("cluster to have %d active node(s)", count))
}

// PollUntil polls condition until it returns true or ctx is cancelled.
func PollUntil(ctx context.Context, interval time.Duration, condition func() bool) error {
	if condition() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
