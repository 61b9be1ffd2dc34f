package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobcopilot/jobstore/internal/api/handler"
	"github.com/jobcopilot/jobstore/internal/backend"
	"github.com/jobcopilot/jobstore/internal/validate"
	"github.com/jobcopilot/jobstore/pkg/models"
)

// fakeStore implements the handler store surface with function fields so
// each test wires only what it exercises.
type fakeStore struct {
	save      func(context.Context, models.JobRecord) (*models.JobRecord, error)
	get       func(context.Context, string) (*models.JobRecord, error)
	query     func(context.Context, models.QueryOptions) (models.QueryResult, error)
	update    func(context.Context, string, map[string]any) (*models.JobRecord, error)
	delete    func(context.Context, string) (bool, error)
	batchSave func(context.Context, []models.JobRecord) ([]models.JobRecord, error)
	getStats  func(context.Context) (*models.Stats, error)
	all       func(context.Context) ([]models.JobRecord, error)
}

func (f *fakeStore) Save(ctx context.Context, rec models.JobRecord) (*models.JobRecord, error) {
	return f.save(ctx, rec)
}
func (f *fakeStore) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	return f.get(ctx, id)
}
func (f *fakeStore) Query(ctx context.Context, opts models.QueryOptions) (models.QueryResult, error) {
	return f.query(ctx, opts)
}
func (f *fakeStore) Update(ctx context.Context, id string, fields map[string]any) (*models.JobRecord, error) {
	return f.update(ctx, id, fields)
}
func (f *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
	return f.delete(ctx, id)
}
func (f *fakeStore) BatchSave(ctx context.Context, recs []models.JobRecord) ([]models.JobRecord, error) {
	return f.batchSave(ctx, recs)
}
func (f *fakeStore) GetStats(ctx context.Context) (*models.Stats, error) {
	return f.getStats(ctx)
}
func (f *fakeStore) All(ctx context.Context) ([]models.JobRecord, error) {
	return f.all(ctx)
}

// serve routes the request through a chi router so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// --- Create ---

func TestCreateHandler(t *testing.T) {
	st := &fakeStore{
		save: func(_ context.Context, rec models.JobRecord) (*models.JobRecord, error) {
			rec.ID = "rec-1"
			return &rec, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/records",
		strings.NewReader(`{"job_id":"job-1","job_title":"Engineer","company_name":"Initech"}`))

	rec := serve(http.MethodPost, "/records", handler.NewCreateHandler(st), req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var stored models.JobRecord
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Equal(t, "rec-1", stored.ID)
}

func TestCreateHandler_InvalidJSON(t *testing.T) {
	st := &fakeStore{}
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{not json`))

	rec := serve(http.MethodPost, "/records", handler.NewCreateHandler(st), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestCreateHandler_ValidationFailureCarriesViolations(t *testing.T) {
	st := &fakeStore{
		save: func(context.Context, models.JobRecord) (*models.JobRecord, error) {
			return nil, &validate.Error{Violations: []string{
				"job_title is required",
				"match_percentage must be between 0 and 100",
			}}
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{}`))

	rec := serve(http.MethodPost, "/records", handler.NewCreateHandler(st), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Len(t, env.Error.Details, 2)
}

// --- Get ---

func TestGetHandler(t *testing.T) {
	st := &fakeStore{
		get: func(_ context.Context, id string) (*models.JobRecord, error) {
			assert.Equal(t, "rec-1", id)
			return &models.JobRecord{ID: id, JobTitle: "Engineer"}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/records/rec-1", nil)

	rec := serve(http.MethodGet, "/records/{recordID}", handler.NewGetHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetHandler_NotFound(t *testing.T) {
	st := &fakeStore{
		get: func(context.Context, string) (*models.JobRecord, error) {
			return nil, backend.ErrNotFound
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/records/missing", nil)

	rec := serve(http.MethodGet, "/records/{recordID}", handler.NewGetHandler(st), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestGetHandler_BackendDown(t *testing.T) {
	st := &fakeStore{
		get: func(context.Context, string) (*models.JobRecord, error) {
			return nil, backend.ErrUnavailable
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/records/rec-1", nil)

	rec := serve(http.MethodGet, "/records/{recordID}", handler.NewGetHandler(st), req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "BACKEND_UNAVAILABLE", decodeEnvelope(t, rec).Error.Code)
}

func TestGetHandler_UnknownErrorIs500(t *testing.T) {
	st := &fakeStore{
		get: func(context.Context, string) (*models.JobRecord, error) {
			return nil, errors.New("boom")
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/records/rec-1", nil)

	rec := serve(http.MethodGet, "/records/{recordID}", handler.NewGetHandler(st), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- List ---

func TestListHandler_ParsesQueryOptions(t *testing.T) {
	var got models.QueryOptions
	st := &fakeStore{
		query: func(_ context.Context, opts models.QueryOptions) (models.QueryResult, error) {
			got = opts
			return models.QueryResult{Items: []models.JobRecord{}, Page: opts.Page}, nil
		},
	}
	target := `/records?search=engineer&sortBy=match_percentage&sortOrder=desc&page=2&pageSize=10` +
		`&filters=` + `%7B%22status%22%3A%5B%22applied%22%5D%2C%22minMatchPercentage%22%3A50%7D`
	req := httptest.NewRequest(http.MethodGet, target, nil)

	rec := serve(http.MethodGet, "/records", handler.NewListHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "engineer", got.Search)
	assert.Equal(t, "match_percentage", got.SortBy)
	assert.Equal(t, "desc", got.SortOrder)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 10, got.PageSize)
	assert.Equal(t, []string{"applied"}, got.Filters.Status)
	require.NotNil(t, got.Filters.MinMatchPercentage)
	assert.Equal(t, 50, *got.Filters.MinMatchPercentage)
}

func TestListHandler_BadPage(t *testing.T) {
	st := &fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/records?page=abc", nil)

	rec := serve(http.MethodGet, "/records", handler.NewListHandler(st), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHandler_BadFilters(t *testing.T) {
	st := &fakeStore{}
	req := httptest.NewRequest(http.MethodGet, "/records?filters=notjson", nil)

	rec := serve(http.MethodGet, "/records", handler.NewListHandler(st), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Update ---

func TestUpdateHandler(t *testing.T) {
	st := &fakeStore{
		update: func(_ context.Context, id string, fields map[string]any) (*models.JobRecord, error) {
			assert.Equal(t, "rec-1", id)
			assert.Equal(t, "applied", fields["status"])
			return &models.JobRecord{ID: id, Status: "applied"}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/records/rec-1", strings.NewReader(`{"status":"applied"}`))

	rec := serve(http.MethodPut, "/records/{recordID}", handler.NewUpdateHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateHandler_NotFound(t *testing.T) {
	st := &fakeStore{
		update: func(context.Context, string, map[string]any) (*models.JobRecord, error) {
			return nil, backend.ErrNotFound
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/records/missing", strings.NewReader(`{"status":"applied"}`))

	rec := serve(http.MethodPut, "/records/{recordID}", handler.NewUpdateHandler(st), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Delete ---

func TestDeleteHandler(t *testing.T) {
	st := &fakeStore{
		delete: func(context.Context, string) (bool, error) { return true, nil },
	}
	req := httptest.NewRequest(http.MethodDelete, "/records/rec-1", nil)

	rec := serve(http.MethodDelete, "/records/{recordID}", handler.NewDeleteHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestDeleteHandler_Missing(t *testing.T) {
	st := &fakeStore{
		delete: func(context.Context, string) (bool, error) { return false, nil },
	}
	req := httptest.NewRequest(http.MethodDelete, "/records/missing", nil)

	rec := serve(http.MethodDelete, "/records/{recordID}", handler.NewDeleteHandler(st), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Batch ---

func TestBatchCreateHandler(t *testing.T) {
	st := &fakeStore{
		batchSave: func(_ context.Context, recs []models.JobRecord) ([]models.JobRecord, error) {
			require.Len(t, recs, 2)
			return recs, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/records/batch",
		strings.NewReader(`{"records":[{"job_id":"a"},{"job_id":"b"}]}`))

	rec := serve(http.MethodPost, "/records/batch", handler.NewBatchCreateHandler(st), req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

// --- Stats ---

func TestStatsHandler(t *testing.T) {
	st := &fakeStore{
		getStats: func(context.Context) (*models.Stats, error) {
			return &models.Stats{Total: 3, AverageMatchPercentage: 66}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/records/stats", nil)

	rec := serve(http.MethodGet, "/records/stats", handler.NewStatsHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)

	var got models.Stats
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 3, got.Total)
}

// --- Export ---

func TestExportHandler(t *testing.T) {
	applied := time.Date(2025, 5, 12, 9, 30, 0, 0, time.UTC)
	salMin, salMax := 90000.0, 120000.0
	st := &fakeStore{
		all: func(context.Context) ([]models.JobRecord, error) {
			return []models.JobRecord{{
				JobTitle:        `Senior "Go" Engineer`,
				CompanyName:     "Initech",
				Location:        "Remote",
				MatchPercentage: 82,
				RankingLevel:    "high",
				Status:          "applied",
				MatchedSkills:   []string{"go", "sql"},
				MissingSkills:   []string{"kubernetes"},
				ApplicationDate: &applied,
				SalaryMin:       &salMin,
				SalaryMax:       &salMax,
				SalaryCurrency:  "USD",
				Notes:           "phone screen done",
			}}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/records/export", nil)

	rec := serve(http.MethodGet, "/records/export", handler.NewExportHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "job_records.csv")

	lines := strings.Split(rec.Body.String(), "\r\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, `"Job Title","Company","Location","Match %","Level","Status","Salary Range","Matched Skills","Missing Skills","Applied Date","Notes"`, lines[0])
	assert.Equal(t, `"Senior ""Go"" Engineer","Initech","Remote","82","high","applied","90000 - 120000 USD","go; sql","kubernetes","2025-05-12","phone screen done"`, lines[1])
}

func TestExportHandler_EmptySetStillWritesHeader(t *testing.T) {
	st := &fakeStore{
		all: func(context.Context) ([]models.JobRecord, error) { return nil, nil },
	}
	req := httptest.NewRequest(http.MethodGet, "/records/export", nil)

	rec := serve(http.MethodGet, "/records/export", handler.NewExportHandler(st), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `"Job Title",`))
}
