package v1

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	aierrors "github.com/hrygo/leanmind/server/internal/errors"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPErrorHandler writes every error as ErrorResponse JSON.
// Coded errors use their mapped status; echo errors keep theirs; anything else is a 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := http.StatusInternalServerError, "unexpected server error"

	var aiErr *aierrors.AIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &aiErr):
		status, message = aiErr.HTTPStatus(), aiErr.Message
	case errors.As(err, &httpErr):
		status = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
		if internal := httpErr.Internal; internal != nil {
			slog.Debug("echo error", slog.String("error", internal.Error()))
		}
	default:
		slog.Error("unhandled error", slog.String("error", err.Error()))
	}

	body := ErrorResponse{Error: http.StatusText(status), Message: message}
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", slog.String("error", writeErr.Error()))
	}
}
