package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    &AppError{Type: ErrTypeValidation, Message: "invalid grouping field"},
			wantMessage: "[VALIDATION] invalid grouping field",
		},
		{
			name:        "error with cause",
			appError:    &AppError{Type: ErrTypeUpstream, Message: "find samples", Cause: fmt.Errorf("connection refused")},
			wantMessage: "[UPSTREAM] find samples: connection refused",
		},
		{
			name:        "error with empty message",
			appError:    &AppError{Type: ErrTypeParsing},
			wantMessage: "[PARSING] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	sentinel := errors.New("store unreachable")
	err := fmt.Errorf("dashboard: %w", NewUpstreamError("count samples", sentinel))

	assert.ErrorIs(t, err, sentinel)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeUpstream, appErr.Type)
	assert.Nil(t, NewNotFoundError("feedstock").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := NewStorageError("insert samples", nil).
		WithContext("feedstock", "calcite").
		WithContext("rows", 12)
	assert.Equal(t, map[string]any{"feedstock": "calcite", "rows": 12}, err.Context)

	bare := &AppError{Type: ErrTypeParsing}
	bare.WithContext("key", "value")
	assert.Equal(t, "value", bare.Context["key"])
}

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name string
		err  *AppError
		want ErrorType
	}{
		{name: "upstream", err: NewUpstreamError("m", cause), want: ErrTypeUpstream},
		{name: "parsing", err: NewParsingError("m", cause), want: ErrTypeParsing},
		{name: "storage", err: NewStorageError("m", cause), want: ErrTypeStorage},
		{name: "validation", err: NewAppValidationError("m", cause), want: ErrTypeValidation},
		{name: "not found", err: NewNotFoundError("feedstock"), want: ErrTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Type)
			assert.NotNil(t, tt.err.Context)
		})
	}
	assert.Equal(t, "feedstock not found", NewNotFoundError("feedstock").Message)
}
