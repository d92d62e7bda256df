// Package lock provides a lease-based distributed lock coordinating
// concurrent pipeline runs that write to the same warehouse target.
//
// There is no lease renewal: an operation that runs longer than the
// lease duration silently loses exclusivity while continuing to run.
// Leases must therefore be sized above the longest expected write.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
)

// KeyPrefix namespaces every lock key in the backing store.
const KeyPrefix = "etl:lock:"

// AcquisitionTimeoutError is returned by WithLock when the lock could
// not be acquired within the timeout.
type AcquisitionTimeoutError struct {
	Name    string
	Elapsed time.Duration
}

func (e *AcquisitionTimeoutError) Error() string {
	return fmt.Sprintf("failed to acquire lock %s after %s", e.Name, e.Elapsed)
}

// Lock is one acquisition handle for a named lock. The owner token is
// generated per handle and is the sole authority for release; handles
// are never shared or transferred.
type Lock struct {
	name          string
	token         string
	lease         time.Duration
	retryInterval time.Duration
	store         Store
}

// Options tunes lock timing; zero values fall back to defaults.
type Options struct {
	Lease         time.Duration // lock expiry, default 5m
	RetryInterval time.Duration // wait between acquisition attempts, default 1s
}

// New creates a lock handle for the given name.
// Parameters:
//   - store: backing store shared by all competing acquirers.
//   - name: logical lock name; stored under KeyPrefix + name.
//   - opts: timing options, nil for defaults.
// Returns:
//   - *Lock: handle with a fresh owner token.
func New(store Store, name string, opts *Options) *Lock {
	lease := 5 * time.Minute
	retry := time.Second
	if opts != nil {
		if opts.Lease > 0 {
			lease = opts.Lease
		}
		if opts.RetryInterval > 0 {
			retry = opts.RetryInterval
		}
	}
	return &Lock{
		name:          KeyPrefix + name,
		token:         uuid.New().String(),
		lease:         lease,
		retryInterval: retry,
		store:         store,
	}
}

// Name returns the namespaced lock key.
func (l *Lock) Name() string { return l.name }

// Acquire attempts to take the lock.
//
// Non-blocking: one set-if-absent attempt, false on contention.
// Blocking: retries at the handle's retry interval until the elapsed
// wait reaches timeout (the lease duration when timeout is zero), then
// returns false without an error. Store errors are returned as-is.
func (l *Lock) Acquire(ctx context.Context, blocking bool, timeout time.Duration) (bool, error) {
	maxWait := timeout
	if maxWait <= 0 {
		maxWait = l.lease
	}
	start := time.Now()

	for {
		acquired, err := l.store.SetIfAbsent(ctx, l.name, l.token, l.lease)
		if err != nil {
			return false, fmt.Errorf("lock store: %w", err)
		}
		if acquired {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"lock_name": l.name,
				"lock_id":   l.token,
			}).Info("Lock acquired")
			return true, nil
		}

		if !blocking {
			return false, nil
		}
		if time.Since(start) >= maxWait {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"lock_name": l.name,
				"timeout":   maxWait.String(),
			}).Warn("Lock acquisition timeout")
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}

// Release gives up the lock via an atomic compare-and-delete on the
// owner token. Returns false when the lock was no longer held by this
// handle, e.g. after lease expiry and re-acquisition by another runner.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	released, err := l.store.DeleteIfOwner(ctx, l.name, l.token)
	if err != nil {
		return false, fmt.Errorf("lock store: %w", err)
	}
	if released {
		logger.FromContext(ctx).WithFields(logger.Fields{
			"lock_name": l.name,
			"lock_id":   l.token,
		}).Info("Lock released")
	}
	return released, nil
}

// WithLock runs fn under the lock: acquire or fail with
// *AcquisitionTimeoutError, then release on every exit path, including
// a panic inside fn.
func (l *Lock) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	acquired, err := l.Acquire(ctx, true, 0)
	if err != nil {
		return err
	}
	if !acquired {
		return &AcquisitionTimeoutError{Name: l.name, Elapsed: time.Since(start)}
	}
	defer func() {
		if _, err := l.Release(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("lock_name", l.name).
				Error("Lock release failed")
		}
	}()

	return fn(ctx)
}
