package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreakwatch/outbreakwatch/internal/api/middleware"
	"github.com/outbreakwatch/outbreakwatch/internal/api/models"
	"github.com/outbreakwatch/outbreakwatch/internal/api/response"
)

// serve runs fn behind the RequestID middleware and returns the recorder.
func serve(t *testing.T, path string, fn http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	middleware.RequestID(fn).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var p models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestJSON_IncludesRequestID(t *testing.T) {
	rec := serve(t, "/v1/risk/states", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"state": "Kerala"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"state":"Kerala"}`, rec.Body.String())
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)

	response.JSON(rec, req, http.StatusAccepted, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Body.String())
}

func TestBadRequest_IncludesFieldErrors(t *testing.T) {
	rec := serve(t, "/v1/risk/history", func(w http.ResponseWriter, r *http.Request) {
		response.BadRequest(w, r, "invalid query", models.FieldError{Field: "limit", Message: "must be positive"})
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	p := decodeProblem(t, rec)
	assert.Equal(t, "/v1/risk/history", p.Instance)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), p.TraceID)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "limit", p.Errors[0].Field)
}

func TestProblemResponses(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, r *http.Request)
		status int
		typ    string
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "x") }, http.StatusNotFound, models.ProblemTypeNotFound},
		{"internal", func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "x") }, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "x") }, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
		{"kind", func(w http.ResponseWriter, r *http.Request) { response.Problem(w, r, models.KindRateLimited, "x") }, http.StatusTooManyRequests, models.ProblemTypeTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "/v1/x", tt.write)
			assert.Equal(t, tt.status, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, "x", p.Detail)
		})
	}
}
