// Package handler implements the records REST surface over the store
// facade.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jobcopilot/jobstore/internal/api/response"
	"github.com/jobcopilot/jobstore/internal/backend"
	"github.com/jobcopilot/jobstore/internal/validate"
	"github.com/jobcopilot/jobstore/pkg/models"
)

// Store defines the facade surface the handlers depend on.
type Store interface {
	Save(ctx context.Context, rec models.JobRecord) (*models.JobRecord, error)
	Get(ctx context.Context, id string) (*models.JobRecord, error)
	Query(ctx context.Context, opts models.QueryOptions) (models.QueryResult, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.JobRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	BatchSave(ctx context.Context, recs []models.JobRecord) ([]models.JobRecord, error)
	GetStats(ctx context.Context) (*models.Stats, error)
	All(ctx context.Context) ([]models.JobRecord, error)
}

// NewCreateHandler returns the handler for POST /api/v1/records.
func NewCreateHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec models.JobRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		stored, err := st.Save(r.Context(), rec)
		if err != nil {
			writeError(w, err)
			return
		}
		response.Created(w, stored)
	}
}

// NewGetHandler returns the handler for GET /api/v1/records/{recordID}.
func NewGetHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "recordID")

		rec, err := st.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, rec)
	}
}

// NewListHandler returns the handler for GET /api/v1/records. Filters
// arrive as a JSON-encoded "filters" query parameter.
func NewListHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := parseQueryOptions(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		result, err := st.Query(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

func parseQueryOptions(r *http.Request) (models.QueryOptions, error) {
	q := r.URL.Query()
	opts := models.QueryOptions{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return opts, errors.New("page must be an integer")
		}
		opts.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return opts, errors.New("pageSize must be an integer")
		}
		opts.PageSize = size
	}
	if raw := q.Get("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Filters); err != nil {
			return opts, errors.New("filters must be a JSON object")
		}
	}
	return opts, nil
}

// NewUpdateHandler returns the handler for PUT /api/v1/records/{recordID}.
func NewUpdateHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "recordID")

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		updated, err := st.Update(r.Context(), id, fields)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, updated)
	}
}

// NewDeleteHandler returns the handler for DELETE /api/v1/records/{recordID}.
func NewDeleteHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "recordID")

		deleted, err := st.Delete(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !deleted {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
			return
		}
		response.JSON(w, map[string]bool{"deleted": true})
	}
}

// NewBatchCreateHandler returns the handler for POST /api/v1/records/batch.
func NewBatchCreateHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Records []models.JobRecord `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		stored, err := st.BatchSave(r.Context(), req.Records)
		if err != nil {
			writeError(w, err)
			return
		}
		response.Created(w, stored)
	}
}

// NewStatsHandler returns the handler for GET /api/v1/records/stats.
func NewStatsHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := st.GetStats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, summary)
	}
}

// writeError maps store errors to HTTP responses. Validation failures
// carry the complete violation list in the error details.
func writeError(w http.ResponseWriter, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"Record validation failed", verr.Violations)
	case errors.Is(err, backend.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	case errors.Is(err, backend.ErrUnavailable):
		response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE",
			"The storage backend is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "STORE_ERROR",
			"The operation could not be completed", nil)
	}
}
