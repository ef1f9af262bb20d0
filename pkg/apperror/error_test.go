package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without internal error",
			err:  New(http.StatusNotFound, "entity_does_not_exist", "Entity does not exist"),
			want: "entity_does_not_exist: Entity does not exist",
		},
		{
			name: "with internal error",
			err:  ErrInternal.WithInternal(errors.New("connection reset")),
			want: "internal_error: An internal error occurred (connection reset)",
		},
		{
			name: "empty message",
			err:  ErrBadRequest.WithMessage(""),
			want: "bad_request: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := ErrConflict.WithInternal(cause)

	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrConflict.Unwrap())
}

func TestError_Is(t *testing.T) {
	sentinel := New(http.StatusConflict, "base_uri_already_exists", "Base URI already exists")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"same sentinel", sentinel, true},
		{"copy with internal", sentinel.WithInternal(errors.New("duplicate")), true},
		{"copy with details", sentinel.WithDetails(map[string]any{"base_uri": "x"}), true},
		{"wrapped copy", fmt.Errorf("insert: %w", sentinel.WithMessage("taken")), true},
		{"different code", ErrConflict, false},
		{"plain error", errors.New("base_uri_already_exists"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, sentinel))
		})
	}
}

func TestError_CopiesLeaveSentinelUntouched(t *testing.T) {
	cause := errors.New("boom")

	withInternal := ErrBadRequest.WithInternal(cause)
	withMessage := withInternal.WithMessage("filter must be an object")
	withDetails := withMessage.WithDetails(map[string]any{"path": "properties"})

	assert.Nil(t, ErrBadRequest.Internal)
	assert.Equal(t, "Invalid request", ErrBadRequest.Message)
	assert.Nil(t, ErrBadRequest.Details)

	assert.Same(t, cause, withMessage.Internal, "WithMessage keeps the internal error")
	assert.Equal(t, "filter must be an object", withDetails.Message, "WithDetails keeps the message")
	assert.Same(t, cause, withDetails.Internal)
	assert.Equal(t, http.StatusBadRequest, withDetails.HTTPStatus)
}

func TestError_WithDetail(t *testing.T) {
	original := ErrNotFound.WithDetails(map[string]any{"kind": "dataType"})
	extended := original.WithDetail("uri", "https://example.com/v/1")

	assert.Equal(t, map[string]any{"kind": "dataType", "uri": "https://example.com/v/1"}, extended.Details)
	assert.NotContains(t, original.Details, "uri", "original details are not shared")

	fromEmpty := ErrNotFound.WithDetail("entity_id", "123")
	assert.Equal(t, map[string]any{"entity_id": "123"}, fromEmpty.Details)
	assert.Nil(t, ErrNotFound.Details)
}

func TestError_ToEchoError(t *testing.T) {
	he := ErrConflict.WithDetail("base_uri", "https://example.com/").ToEchoError()

	assert.Equal(t, http.StatusConflict, he.Code)
	msg, ok := he.Message.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"code":    "conflict",
		"message": "Resource already exists",
		"details": map[string]any{"base_uri": "https://example.com/"},
	}, msg["error"])
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid depth")

	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "bad_request", err.Code)
	assert.Equal(t, "invalid depth", err.Message)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *Error
		wantStatus int
		wantCode   string
	}{
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{ErrBadRequest, http.StatusBadRequest, "bad_request"},
		{ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
		{ErrInternal, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.wantCode, tt.err.Code)
		})
	}
}
