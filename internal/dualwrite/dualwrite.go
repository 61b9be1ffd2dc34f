// Package dualwrite fans a write out to the local and remote backends
// concurrently and reconciles partial failure. The remote result wins
// whenever remote succeeds; local keeps the session usable when it does
// not. Batch writes go through the same machinery at batch granularity.
package dualwrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"

	"github.com/jobcopilot/jobstore/internal/backend"
)

const recoveryTimeout = 30 * time.Second

// Coordinator joins concurrent writes against two distinct backends. This
// is the only place true concurrency exists in the store; it is always
// write-write against different backends, never against the same one.
type Coordinator struct {
	local  backend.Backend
	remote backend.Backend
	rptr   *repeater.Repeater
	bg     sync.WaitGroup
}

// New creates a coordinator over the two backends.
func New(local, remote backend.Backend) *Coordinator {
	return &Coordinator{
		local:  local,
		remote: remote,
		rptr: repeater.New(&strategy.Backoff{
			Repeats:  3,
			Duration: 500 * time.Millisecond,
			Factor:   2,
			Jitter:   true,
		}),
	}
}

// Wait blocks until all fire-and-forget recovery attempts have finished.
// Called on shutdown so pending local recoveries are not cut off.
func (c *Coordinator) Wait() { c.bg.Wait() }

type outcome[T any] struct {
	val T
	err error
}

// Write runs op against both backends concurrently, joining on both
// regardless of which fails first, then reconciles:
//
//	remote ok, local ok   -> remote result
//	remote ok, local fail -> remote result, background local recovery
//	remote fail, local ok -> local result
//	both fail             -> one synchronous local retry, else hard failure
func Write[T any](ctx context.Context, c *Coordinator, name string, op func(context.Context, backend.Backend) (T, error)) (T, error) {
	localCh := make(chan outcome[T], 1)
	remoteCh := make(chan outcome[T], 1)

	go func() {
		val, err := op(ctx, c.local)
		localCh <- outcome[T]{val: val, err: err}
	}()
	go func() {
		val, err := op(ctx, c.remote)
		remoteCh <- outcome[T]{val: val, err: err}
	}()

	local, remote := <-localCh, <-remoteCh

	switch {
	case remote.err == nil && local.err == nil:
		return remote.val, nil

	case remote.err == nil:
		slog.Warn("local write failed, remote succeeded; scheduling local recovery",
			"op", name, "error", local.err)
		c.recoverLocal(name, func(ctx context.Context) error {
			_, err := op(ctx, c.local)
			return err
		})
		return remote.val, nil

	case local.err == nil:
		slog.Warn("remote write failed, returning local result",
			"op", name, "error", remote.err)
		return local.val, nil

	default:
		// a missing target is not a write failure, surface it untouched
		if errors.Is(local.err, backend.ErrNotFound) {
			var zero T
			return zero, local.err
		}
		slog.Warn("both backends failed, retrying local once",
			"op", name, "remote_error", remote.err, "local_error", local.err)
		val, err := op(ctx, c.local)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("%s failed on both backends (remote: %v): %w", name, remote.err, err)
		}
		return val, nil
	}
}

// recoverLocal re-attempts the local write in the background with backoff.
// The write has already been reported successful from the remote result, so
// the outcome is logged and never surfaces to the original caller.
func (c *Coordinator) recoverLocal(name string, do func(context.Context) error) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recoveryTimeout)
		defer cancel()

		if err := c.rptr.Do(ctx, func() error { return do(ctx) }); err != nil {
			slog.Warn("local recovery failed, local copy is behind remote", "op", name, "error", err)
			return
		}
		slog.Info("local recovery succeeded", "op", name)
	}()
}
