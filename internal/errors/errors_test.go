package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_PARAMETER", "omega must be between 0 and 1000")
	assert.Equal(t, "omega must be between 0 and 1000", err.Error())

	var target *APIError
	wrapped := errors.Join(errors.New("context"), err)
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "INVALID_PARAMETER", target.ErrorCode)
}

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{name: "bad request", apiError: ErrInvalidRequest, wantStatus: http.StatusBadRequest},
		{name: "payload too large", apiError: ErrPayloadTooLarge, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "service unavailable", apiError: ErrServiceUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)

			require.NoError(t, render.Render(w, r, tt.apiError))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body["error_code"])
		})
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{name: "invalid request", err: InvalidRequestWithError(errors.New("bad form")), wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "field validation", err: ErrValidation("omega", "must be >= 0"), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "several fields", err: NewValidationErrors([]ValidationError{{Field: "limit"}, {Field: "skip"}}), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "too large", err: PayloadTooLarge(1024), wantStatus: http.StatusRequestEntityTooLarge, wantCode: "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
		})
	}

	assert.Equal(t, "bad form", InvalidRequestWithError(errors.New("bad form")).Details)
	assert.Equal(t, ValidationError{Field: "omega", Message: "must be >= 0"}, ErrValidation("omega", "must be >= 0").Details)
	assert.Equal(t, map[string]int64{"max_bytes": 1024}, PayloadTooLarge(1024).Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusServiceUnavailable, TypeServiceDown, "Service Unavailable", "", "/api/filters").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, TypeServiceDown, body["type"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), body["status"], "extensions cannot override standard members")
	assert.Equal(t, "/api/filters", body["instance"])
	assert.Equal(t, "abc", body["trace_id"])
	assert.NotContains(t, body, "detail")
}

func TestProblemDetails_WithExtensionOnZeroValue(t *testing.T) {
	var p ProblemDetails
	p.WithExtension("k", "v")
	assert.Equal(t, "v", p.Extensions["k"])
}
