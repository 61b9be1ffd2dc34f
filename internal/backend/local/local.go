// Package local implements the backend contract on durable key-value
// storage: a single SQLite collection row holds the full record array as
// JSON, and all merge/filter logic happens in memory. The store assumes a
// single logical writer; the mutex only serializes read-modify-write
// sequences issued by concurrent HTTP handlers of the same process.
package local

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // migrate sqlite driver
	_ "modernc.org/sqlite"                                   // sqlite driver

	"github.com/jobcopilot/jobstore/internal/backend"
	"github.com/jobcopilot/jobstore/internal/stats"
	"github.com/jobcopilot/jobstore/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const collectionName = "job_records"

// Store is the local durable backend.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// Open opens (or creates) the SQLite database at path, enables WAL mode
// and applies migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrency between the writer and readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(path); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("run migrations: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now, newID: uuid.NewString}, nil
}

func runMigrations(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Name() string { return "local" }

// HealthCheck checks database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) loadAll(ctx context.Context) ([]models.JobRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM collections WHERE name = ?`, collectionName,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.JobRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	var records []models.JobRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func (s *Store) saveAll(ctx context.Context, records []models.JobRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		collectionName, string(payload), s.now().Unix())
	if err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// Create stores a new record, assigning an id if absent and stamping both
// timestamps. Caller-supplied timestamps are never trusted.
func (s *Store) Create(ctx context.Context, rec models.JobRecord) (*models.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	stored := s.stamp(rec)
	records = append(records, stored)

	if err := s.saveAll(ctx, records); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) stamp(rec models.JobRecord) models.JobRecord {
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return rec
}

// Get returns the record with the given id, or backend.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, backend.ErrNotFound
}

// Query returns the full record set; filtering, sorting and pagination
// belong to the query engine.
func (s *Store) Query(ctx context.Context, _ models.QueryOptions) ([]models.JobRecord, int, error) {
	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, len(records), nil
}

// Update merges the patch into the stored record and refreshes updated_at.
func (s *Store) Update(ctx context.Context, id string, patch *models.RecordPatch) (*models.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ID != id {
			continue
		}
		updated := patch.Apply(records[i])
		updated.UpdatedAt = s.now().UTC()
		records[i] = updated

		if err := s.saveAll(ctx, records); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, backend.ErrNotFound
}

// Delete removes the record with the given id, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAll(ctx)
	if err != nil {
		return false, err
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return false, nil
	}

	if err := s.saveAll(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}

// BatchCreate stores records in bulk, merging on identity: an incoming
// record whose id already exists refreshes the descriptive and scoring
// fields while keeping the stored workflow state and created_at.
func (s *Store) BatchCreate(ctx context.Context, recs []models.JobRecord) ([]models.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.ID] = i
	}

	stored := make([]models.JobRecord, 0, len(recs))
	for _, rec := range recs {
		if i, ok := index[rec.ID]; ok && rec.ID != "" {
			merged := mergeExisting(records[i], rec)
			merged.UpdatedAt = s.now().UTC()
			records[i] = merged
			stored = append(stored, merged)
			continue
		}
		created := s.stamp(rec)
		index[created.ID] = len(records)
		records = append(records, created)
		stored = append(stored, created)
	}

	if err := s.saveAll(ctx, records); err != nil {
		return nil, err
	}
	return stored, nil
}

// mergeExisting takes descriptive, scoring and compensation fields from the
// incoming record but keeps the workflow state the user already built up.
func mergeExisting(existing, incoming models.JobRecord) models.JobRecord {
	existing.JobID = incoming.JobID
	existing.JobTitle = incoming.JobTitle
	existing.CompanyName = incoming.CompanyName
	existing.Location = incoming.Location
	existing.Description = incoming.Description
	existing.MatchPercentage = incoming.MatchPercentage
	existing.RankingLevel = incoming.RankingLevel
	existing.MatchedSkills = incoming.MatchedSkills
	existing.MissingSkills = incoming.MissingSkills
	existing.SalaryMin = incoming.SalaryMin
	existing.SalaryMax = incoming.SalaryMax
	existing.SalaryCurrency = incoming.SalaryCurrency
	return existing
}

// Stats aggregates over the full record set in a single pass.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Compute(records), nil
}
