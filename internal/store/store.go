// Package store is the facade every consumer goes through: it validates,
// consults the cache, routes writes to the active backend (or both, in
// remote-backed mode) and applies the query engine to backend data.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobcopilot/jobstore/internal/backend"
	"github.com/jobcopilot/jobstore/internal/cache"
	"github.com/jobcopilot/jobstore/internal/dualwrite"
	"github.com/jobcopilot/jobstore/internal/query"
	"github.com/jobcopilot/jobstore/internal/stats"
	"github.com/jobcopilot/jobstore/internal/validate"
	"github.com/jobcopilot/jobstore/pkg/models"
)

// Options tunes the facade.
type Options struct {
	// CacheTTL is the default entry lifetime for record reads.
	CacheTTL time.Duration
	// StatsCacheTTL is the (typically shorter) lifetime for aggregates.
	StatsCacheTTL time.Duration
	// HealthTimeout bounds the one-time remote health probe.
	HealthTimeout time.Duration
}

const (
	defaultStatsTTL      = 30 * time.Second
	defaultHealthTimeout = 5 * time.Second
)

// Store is the record-storage facade. Construct it with New and pass the
// instance to every consumer; readiness is exposed explicitly through the
// blocking behavior of the public operations.
type Store struct {
	local  backend.Backend
	remote backend.Backend
	cache  cache.Cache
	val    *validate.Validator
	coord  *dualwrite.Coordinator

	ttl      time.Duration
	statsTTL time.Duration

	// remoteMode is written once before ready closes, read only after.
	ready      chan struct{}
	remoteMode bool
}

// New builds the facade and starts backend selection. When remote is
// non-nil a bounded health probe decides whether remote-backed mode is
// viable; on failure the store falls back to local-only for the session.
// Public operations block until selection completes.
func New(local backend.Backend, remote backend.Backend, c cache.Cache, opts Options) *Store {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = defaultStatsTTL
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = defaultHealthTimeout
	}

	s := &Store{
		local:    local,
		remote:   remote,
		cache:    c,
		val:      validate.New(),
		ttl:      opts.CacheTTL,
		statsTTL: opts.StatsCacheTTL,
		ready:    make(chan struct{}),
	}

	go s.selectBackend(opts.HealthTimeout)
	return s
}

func (s *Store) selectBackend(healthTimeout time.Duration) {
	defer close(s.ready)

	if s.remote == nil {
		slog.Info("store ready", "mode", "local")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	if err := s.remote.HealthCheck(ctx); err != nil {
		slog.Warn("remote health probe failed, falling back to local-only for the session", "error", err)
		s.remote = nil
		return
	}

	s.remoteMode = true
	s.coord = dualwrite.New(s.local, s.remote)
	slog.Info("store ready", "mode", "remote")
}

// WaitReady blocks until backend selection has completed.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mode reports the selected backend mode. Blocks until selection completes.
func (s *Store) Mode(ctx context.Context) (string, error) {
	if err := s.WaitReady(ctx); err != nil {
		return "", err
	}
	if s.remoteMode {
		return "remote", nil
	}
	return "local", nil
}

// Close waits for pending background recoveries and releases the cache.
func (s *Store) Close() error {
	if s.coord != nil {
		s.coord.Wait()
	}
	return s.cache.Close()
}

// Save validates, normalizes and persists a new record. In remote-backed
// mode identity is assigned here, before the fan-out, so both backends
// store the record under the same id and the local copy can actually serve
// as the fallback.
func (s *Store) Save(ctx context.Context, rec models.JobRecord) (*models.JobRecord, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	norm, err := s.val.Validate(rec)
	if err != nil {
		return nil, err
	}

	var stored *models.JobRecord
	if s.remoteMode {
		if norm.ID == "" {
			norm.ID = uuid.NewString()
		}
		stored, err = dualwrite.Write(ctx, s.coord, "create",
			func(ctx context.Context, b backend.Backend) (*models.JobRecord, error) {
				return b.Create(ctx, *norm)
			})
	} else {
		stored, err = s.local.Create(ctx, *norm)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateAfterWrite(ctx, stored.ID)
	return stored, nil
}

// Get returns a record by id, serving from cache when the entry is fresh.
// In remote mode a failing remote read falls back to the local copy.
func (s *Store) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	key := cache.RecordKey(id)
	var cached models.JobRecord
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	rec, err := s.readRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, rec, s.ttl)
	return rec, nil
}

func (s *Store) readRecord(ctx context.Context, id string) (*models.JobRecord, error) {
	if !s.remoteMode {
		return s.local.Get(ctx, id)
	}

	rec, err := s.remote.Get(ctx, id)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		slog.Warn("remote read failed, serving local copy", "id", id, "error", err)
		return s.local.Get(ctx, id)
	}
	return rec, err
}

// Update applies a partial update. Only allow-listed fields may change;
// unspecified fields are retained and updated_at advances.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) (*models.JobRecord, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	patch, err := s.val.ValidateUpdate(fields)
	if err != nil {
		return nil, err
	}

	var updated *models.JobRecord
	if s.remoteMode {
		updated, err = dualwrite.Write(ctx, s.coord, "update",
			func(ctx context.Context, b backend.Backend) (*models.JobRecord, error) {
				return b.Update(ctx, id, patch)
			})
	} else {
		updated, err = s.local.Update(ctx, id, patch)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateAfterWrite(ctx, id)
	return updated, nil
}

// Delete removes a record, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.WaitReady(ctx); err != nil {
		return false, err
	}

	var deleted bool
	var err error
	if s.remoteMode {
		deleted, err = dualwrite.Write(ctx, s.coord, "delete",
			func(ctx context.Context, b backend.Backend) (bool, error) {
				return b.Delete(ctx, id)
			})
	} else {
		deleted, err = s.local.Delete(ctx, id)
	}
	if err != nil {
		return false, err
	}

	s.invalidateAfterWrite(ctx, id)
	return deleted, nil
}

// BatchSave validates and persists records in bulk, merging on identity.
// The dual-write state machine applies at batch granularity.
func (s *Store) BatchSave(ctx context.Context, recs []models.JobRecord) ([]models.JobRecord, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	norm, err := s.val.ValidateBatch(recs)
	if err != nil {
		return nil, err
	}

	var stored []models.JobRecord
	if s.remoteMode {
		for i := range norm {
			if norm[i].ID == "" {
				norm[i].ID = uuid.NewString()
			}
		}
		stored, err = dualwrite.Write(ctx, s.coord, "batch create",
			func(ctx context.Context, b backend.Backend) ([]models.JobRecord, error) {
				return b.BatchCreate(ctx, norm)
			})
	} else {
		stored, err = s.local.BatchCreate(ctx, norm)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(stored))
	for _, rec := range stored {
		ids = append(ids, rec.ID)
	}
	s.invalidateAfterWrite(ctx, ids...)
	return stored, nil
}

// Query applies filter, search, sort and pagination to the full record set
// from the active backend. Backend failure degrades to an empty result set
// rather than an error: a dashboard showing no data beats a crashed view.
func (s *Store) Query(ctx context.Context, opts models.QueryOptions) (models.QueryResult, error) {
	if err := s.WaitReady(ctx); err != nil {
		return models.QueryResult{}, err
	}

	records, err := s.fetchAll(ctx)
	if err != nil {
		slog.Error("query failed on all backends, returning empty result", "error", err)
		records = nil
	}
	return query.Run(records, opts), nil
}

// All returns the full, unfiltered record set, for consumers like the
// tabular export that do their own formatting.
func (s *Store) All(ctx context.Context) ([]models.JobRecord, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}
	return s.fetchAll(ctx)
}

// fetchAll loads the complete record set, cached under the shared
// collection key. The backend is always asked with pass-all options so the
// cached value never depends on one caller's filters.
func (s *Store) fetchAll(ctx context.Context) ([]models.JobRecord, error) {
	key := cache.RecordsKey()
	var cached []models.JobRecord
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	records, _, err := s.queryBackend(ctx)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, records, s.ttl)
	return records, nil
}

func (s *Store) queryBackend(ctx context.Context) ([]models.JobRecord, int, error) {
	if !s.remoteMode {
		return s.local.Query(ctx, models.QueryOptions{})
	}

	records, total, err := s.remote.Query(ctx, models.QueryOptions{})
	if err != nil {
		slog.Warn("remote query failed, serving local copy", "error", err)
		return s.local.Query(ctx, models.QueryOptions{})
	}
	return records, total, nil
}

// GetStats returns summary aggregates over the full record set, cached
// with the shorter stats TTL. Failure degrades to empty stats.
func (s *Store) GetStats(ctx context.Context) (*models.Stats, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	key := cache.StatsKey()
	var cached models.Stats
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := s.computeStats(ctx)
	if err != nil {
		slog.Error("stats failed on all backends, returning empty stats", "error", err)
		return &models.Stats{ByStatus: map[string]int{}}, nil
	}

	s.cacheSet(ctx, key, summary, s.statsTTL)
	return summary, nil
}

func (s *Store) computeStats(ctx context.Context) (*models.Stats, error) {
	primary := s.local
	if s.remoteMode {
		primary = s.remote
	}

	summary, err := primary.Stats(ctx)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, backend.ErrStatsUnsupported) {
		slog.Warn("backend stats failed, synthesizing from full record set", "backend", primary.Name(), "error", err)
	}

	records, _, qerr := s.queryBackend(ctx)
	if qerr != nil {
		return nil, fmt.Errorf("stats unavailable: %w", qerr)
	}
	return stats.Compute(records), nil
}

// invalidateAfterWrite drops every cache entry the mutation could have
// staled, synchronously, as part of the same logical operation.
func (s *Store) invalidateAfterWrite(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if err := s.cache.Invalidate(ctx, cache.RecordKey(id)); err != nil {
			slog.Warn("cache invalidation failed", "key", cache.RecordKey(id), "error", err)
		}
	}
	for _, pattern := range []string{cache.RecordsPrefix, cache.StatsPrefix} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			slog.Warn("cache invalidation failed", "pattern", pattern, "error", err)
		}
	}
}

func (s *Store) cacheGet(ctx context.Context, key string, out any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) cacheSet(ctx context.Context, key string, val any, ttl time.Duration) {
	raw, err := json.Marshal(val)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}
