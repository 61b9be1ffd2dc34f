// Package backend defines the capability contract shared by the local and
// remote record stores. The two implementations are interchangeable: the
// facade selects one (or both, in dual-write mode) once at construction
// time and never re-checks per call.
package backend

import (
	"context"
	"errors"

	"github.com/jobcopilot/jobstore/pkg/models"
)

var (
	// ErrNotFound is returned when an update/delete/read target does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrStatsUnsupported is returned by backends that leave Stats to be
	// synthesized from Query by the caller.
	ErrStatsUnsupported = errors.New("stats not implemented by backend")
)

// Backend is the uniform contract implemented by the local and remote
// stores. Query returns the full, unpaginated match set plus its size;
// pagination is applied by the query engine so behavior is identical
// regardless of which backend produced the data.
type Backend interface {
	Create(ctx context.Context, rec models.JobRecord) (*models.JobRecord, error)
	Get(ctx context.Context, id string) (*models.JobRecord, error)
	Query(ctx context.Context, opts models.QueryOptions) ([]models.JobRecord, int, error)
	Update(ctx context.Context, id string, patch *models.RecordPatch) (*models.JobRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	BatchCreate(ctx context.Context, recs []models.JobRecord) ([]models.JobRecord, error)
	Stats(ctx context.Context) (*models.Stats, error)
	HealthCheck(ctx context.Context) error
	Name() string
}
