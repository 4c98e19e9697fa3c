package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/leanmind/plugin/ai/session"
	aierrors "github.com/hrygo/leanmind/server/internal/errors"
)

// GetSessionHistory returns the stored messages of a session.
// GET /internal/sessions/:sessionId/history
func (s *APIV1Service) GetSessionHistory(c echo.Context) error {
	history, err := s.Sessions.GetHistory(c.Request().Context(), sessionIDParam(c))
	if err != nil {
		return aierrors.HistoryUnavailable(err)
	}
	return c.JSON(http.StatusOK, history)
}

// AddSessionMessage appends one message to a session.
// POST /internal/sessions/:sessionId/add
func (s *APIV1Service) AddSessionMessage(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return s.sessionNotFound(c)
	}

	var msg session.Message
	if err := json.NewDecoder(c.Request().Body).Decode(&msg); err != nil {
		return aierrors.InvalidArgument("malformed JSON body")
	}

	if err := s.Sessions.AppendMessage(c.Request().Context(), sessionIDParam(c), msg); err != nil {
		if errors.Is(err, session.ErrInvalidRole) || errors.Is(err, session.ErrEmptySessionID) {
			return aierrors.InvalidArgument(err.Error())
		}
		return aierrors.Internal("failed to append message", err)
	}
	return c.JSON(http.StatusOK, session.AddMessageResponse{Status: session.StatusOK})
}

func (s *APIV1Service) sessionNotFound(echo.Context) error {
	return aierrors.NotFound("Not Found")
}

// sessionIDParam returns the decoded session id. Echo routes on the raw path when the
// request path carries escaped characters such as %2F, leaving the parameter escaped.
func sessionIDParam(c echo.Context) string {
	id := c.Param("sessionId")
	if c.Request().URL.RawPath == "" {
		return id
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}
