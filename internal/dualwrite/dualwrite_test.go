package dualwrite_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobcopilot/jobstore/internal/backend"
	"github.com/jobcopilot/jobstore/internal/dualwrite"
	"github.com/jobcopilot/jobstore/pkg/models"
)

// stubBackend only exists to satisfy the backend contract; the test ops
// dispatch on Name and never call through.
type stubBackend struct{ name string }

func (b *stubBackend) Create(context.Context, models.JobRecord) (*models.JobRecord, error) {
	return nil, nil
}
func (b *stubBackend) Get(context.Context, string) (*models.JobRecord, error) { return nil, nil }
func (b *stubBackend) Query(context.Context, models.QueryOptions) ([]models.JobRecord, int, error) {
	return nil, 0, nil
}
func (b *stubBackend) Update(context.Context, string, *models.RecordPatch) (*models.JobRecord, error) {
	return nil, nil
}
func (b *stubBackend) Delete(context.Context, string) (bool, error) { return false, nil }
func (b *stubBackend) BatchCreate(context.Context, []models.JobRecord) ([]models.JobRecord, error) {
	return nil, nil
}
func (b *stubBackend) Stats(context.Context) (*models.Stats, error) { return nil, nil }
func (b *stubBackend) HealthCheck(context.Context) error            { return nil }
func (b *stubBackend) Name() string                                 { return b.name }

func newCoordinator() *dualwrite.Coordinator {
	return dualwrite.New(&stubBackend{name: "local"}, &stubBackend{name: "remote"})
}

// splitOp builds an op whose behavior differs per backend, counting local
// invocations so tests can observe retries and recovery.
func splitOp(localCalls *int32, localFn, remoteFn func(call int32) (*models.JobRecord, error)) func(context.Context, backend.Backend) (*models.JobRecord, error) {
	return func(_ context.Context, b backend.Backend) (*models.JobRecord, error) {
		if b.Name() == "local" {
			call := atomic.AddInt32(localCalls, 1)
			return localFn(call)
		}
		return remoteFn(0)
	}
}

func ok(id string) func(int32) (*models.JobRecord, error) {
	return func(int32) (*models.JobRecord, error) { return &models.JobRecord{ID: id}, nil }
}

func fail(err error) func(int32) (*models.JobRecord, error) {
	return func(int32) (*models.JobRecord, error) { return nil, err }
}

func TestWrite_BothSucceed_RemoteWins(t *testing.T) {
	c := newCoordinator()
	var localCalls int32

	rec, err := dualwrite.Write(context.Background(), c, "create",
		splitOp(&localCalls, ok("from-local"), ok("from-remote")))
	require.NoError(t, err)
	assert.Equal(t, "from-remote", rec.ID)
	assert.Equal(t, int32(1), localCalls)
}

func TestWrite_RemoteFails_LocalResultReturned(t *testing.T) {
	c := newCoordinator()
	var localCalls int32

	rec, err := dualwrite.Write(context.Background(), c, "create",
		splitOp(&localCalls, ok("from-local"), fail(backend.ErrUnavailable)))
	require.NoError(t, err, "a usable local write is not a caller-visible failure")
	assert.Equal(t, "from-local", rec.ID)
}

func TestWrite_LocalFails_RemoteResultAndRecovery(t *testing.T) {
	c := newCoordinator()
	var localCalls int32

	// local fails the in-band write, then succeeds on the recovery attempt
	localFn := func(call int32) (*models.JobRecord, error) {
		if call == 1 {
			return nil, errors.New("disk full")
		}
		return &models.JobRecord{ID: "recovered"}, nil
	}

	rec, err := dualwrite.Write(context.Background(), c, "create",
		splitOp(&localCalls, localFn, ok("from-remote")))
	require.NoError(t, err)
	assert.Equal(t, "from-remote", rec.ID)

	c.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&localCalls), "recovery re-ran the local write")
}

func TestWrite_BothFail_LocalRetrySucceeds(t *testing.T) {
	c := newCoordinator()
	var localCalls int32

	localFn := func(call int32) (*models.JobRecord, error) {
		if call == 1 {
			return nil, errors.New("busy")
		}
		return &models.JobRecord{ID: "retried"}, nil
	}

	rec, err := dualwrite.Write(context.Background(), c, "create",
		splitOp(&localCalls, localFn, fail(backend.ErrUnavailable)))
	require.NoError(t, err)
	assert.Equal(t, "retried", rec.ID)
	assert.Equal(t, int32(2), localCalls)
}

func TestWrite_BothFail_RetryFails(t *testing.T) {
	c := newCoordinator()
	var localCalls int32
	localErr := errors.New("busy")

	rec, err := dualwrite.Write(context.Background(), c, "create",
		splitOp(&localCalls, fail(localErr), fail(backend.ErrUnavailable)))
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, localErr)
	assert.Contains(t, err.Error(), "create failed on both backends")
	assert.Equal(t, int32(2), localCalls, "exactly one synchronous retry")
}

func TestWrite_NotFoundPassesThrough(t *testing.T) {
	c := newCoordinator()
	var localCalls int32

	rec, err := dualwrite.Write(context.Background(), c, "update",
		splitOp(&localCalls, fail(backend.ErrNotFound), fail(backend.ErrNotFound)))
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Nil(t, rec)
	assert.Equal(t, int32(1), localCalls, "a missing target is never retried")
}

func TestWrite_GenericOverDelete(t *testing.T) {
	c := newCoordinator()

	op := func(_ context.Context, b backend.Backend) (bool, error) {
		return b.Name() == "remote", nil
	}
	found, err := dualwrite.Write(context.Background(), c, "delete", op)
	require.NoError(t, err)
	assert.True(t, found, "remote outcome wins when both succeed")
}

func TestWait_NoPendingRecovery(t *testing.T) {
	c := newCoordinator()
	c.Wait() // returns immediately when nothing is in flight
}
