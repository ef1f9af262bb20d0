package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// statusCodes names the error code used for plain echo errors.
var statusCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
	http.StatusUnprocessableEntity:   "validation_error",
}

// HTTPErrorHandler returns an Echo error handler that renders errors as
// {"error": {"code", "message", "details"}}.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := render(err)
		if code >= http.StatusInternalServerError {
			log.Error("request error",
				slog.Int("status", code),
				slog.Any("code", body["code"]),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]any{"error": body})
	}
}

func render(err error) (int, map[string]any) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, appErr.body()
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return ErrInternal.HTTPStatus, ErrInternal.body()
	}

	body := ErrInternal.body()
	switch msg := he.Message.(type) {
	case map[string]any:
		// ToEchoError output
		if inner, ok := msg["error"].(map[string]any); ok {
			for k, v := range inner {
				body[k] = v
			}
		}
	case string:
		body["message"] = msg
		if name, ok := statusCodes[he.Code]; ok {
			body["code"] = name
		}
	}
	return he.Code, body
}
