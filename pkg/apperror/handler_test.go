package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, method string, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, "/", nil), rec)

	HTTPErrorHandler(slog.Default())(err, c)

	if rec.Body.Len() == 0 {
		return rec, nil
	}
	var resp struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp.Error
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec, body := handle(t, http.MethodPost, NewBadRequest("schema is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", body["code"])
	assert.Equal(t, "schema is required", body["message"])
	assert.NotContains(t, body, "details")
}

func TestHTTPErrorHandler_EchoErrorCodes(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusBadRequest, "bad_request"},
		{http.StatusNotFound, "not_found"},
		{http.StatusMethodNotAllowed, "method_not_allowed"},
		{http.StatusConflict, "conflict"},
		{http.StatusRequestEntityTooLarge, "payload_too_large"},
		{http.StatusUnsupportedMediaType, "unsupported_media_type"},
		{http.StatusUnprocessableEntity, "validation_error"},
		{http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec, body := handle(t, http.MethodGet, echo.NewHTTPError(tt.status, "test message"))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, "test message", body["message"])
		})
	}
}

func TestHTTPErrorHandler_ToEchoError(t *testing.T) {
	appErr := ErrConflict.WithMessage("Base URI already exists").WithDetail("base_uri", "https://example.com/data-type/text/")

	rec, body := handle(t, http.MethodPost, appErr.ToEchoError())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body["code"])
	assert.Equal(t, "Base URI already exists", body["message"])
	assert.Equal(t, map[string]any{"base_uri": "https://example.com/data-type/text/"}, body["details"])
}

func TestHTTPErrorHandler_WrappedAppErrorWithDetails(t *testing.T) {
	err := fmt.Errorf("create: %w", ErrConflict.WithDetail("base_uri", "https://example.com/types/text/"))

	rec, body := handle(t, http.MethodPost, err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body["code"])
	assert.Equal(t, map[string]any{"base_uri": "https://example.com/types/text/"}, body["details"])
}

func TestHTTPErrorHandler_UnknownErrorHidesInternals(t *testing.T) {
	rec, body := handle(t, http.MethodGet, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", body["code"])
	assert.Equal(t, "An internal error occurred", body["message"])
}

func TestHTTPErrorHandler_HeadRequest(t *testing.T) {
	rec, body := handle(t, http.MethodHead, ErrNotFound.WithMessage("entity 123 not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, body)
	assert.Zero(t, rec.Body.Len())
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	c.Response().WriteHeader(http.StatusOK)
	_, _ = c.Response().Write([]byte("already written"))

	HTTPErrorHandler(slog.Default())(NewBadRequest("should not appear"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already written", rec.Body.String())
}
