package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobcopilot/jobstore/internal/api/response"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "abc", env.Data["id"])
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Created(rec, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Error(rec, http.StatusBadRequest, "VALIDATION_FAILED", "Record validation failed",
		[]string{"job_title is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string   `json:"code"`
			Message string   `json:"message"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, []string{"job_title is required"}, env.Error.Details)
}

func TestError_OmitsEmptyDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Error(rec, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)

	assert.NotContains(t, rec.Body.String(), "details")
}
