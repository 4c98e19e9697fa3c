package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/leanmind/plugin/ai/timeout"
	aierrors "github.com/hrygo/leanmind/server/internal/errors"
	"github.com/hrygo/leanmind/server/internal/observability"
	"github.com/hrygo/leanmind/server/service/relay"
)

// ChatRequest is the relay request body. Pointers tell a missing field from an empty one.
type ChatRequest struct {
	Input     *string `json:"input"`
	SessionID *string `json:"sessionId"`
}

// Chat handles POST requests on the relay endpoints.
func (s *APIV1Service) Chat(c echo.Context) error {
	reqCtx := observability.NewRequestContext(slog.Default(), c.Response().Header().Get(echo.HeaderXRequestID), "")

	resp, err := s.chat(c, reqCtx)
	s.Metrics.RecordRequest(reqCtx.Duration())
	if err != nil {
		code := aierrors.GetCodeFromError(err, aierrors.ErrCodeInternal)
		s.Metrics.RecordFailure(string(code))
		logRelayFailure(reqCtx, code, err)
		return err
	}

	reqCtx.Info("relay completed",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Int(observability.LogFieldReplyLen, len(resp.Output)),
	)
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) chat(c echo.Context, reqCtx *observability.RequestContext) (*relay.ChatResponse, error) {
	if c.Request().Method != http.MethodPost {
		return nil, aierrors.MethodNotAllowed(c.Request().Method)
	}

	req, err := decodeChatRequest(c.Request().Body)
	if err != nil {
		return nil, err
	}
	reqCtx.SessionID = req.SessionID

	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
	return s.Relay.Chat(ctx, req)
}

// decodeChatRequest parses the body and checks field types. Emptiness is checked by the relay.
func decodeChatRequest(body io.Reader) (*relay.ChatRequest, error) {
	var raw ChatRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return nil, aierrors.InvalidArgument("request body is required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return nil, aierrors.InvalidArgument(fmt.Sprintf("%s must be a string", typeErr.Field))
		case errors.As(err, &typeErr):
			return nil, aierrors.InvalidArgument("request body must be a JSON object")
		default:
			return nil, aierrors.InvalidArgument("malformed JSON body")
		}
	}
	// The body must hold exactly one JSON value.
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, aierrors.InvalidArgument("malformed JSON body")
	}

	if raw.Input == nil {
		return nil, aierrors.InvalidArgument("input is required")
	}
	if raw.SessionID == nil {
		return nil, aierrors.InvalidArgument("sessionId is required")
	}
	return &relay.ChatRequest{Input: *raw.Input, SessionID: *raw.SessionID}, nil
}

func logRelayFailure(reqCtx *observability.RequestContext, code aierrors.ErrorCode, err error) {
	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(code)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	}
	var aiErr *aierrors.AIError
	if errors.As(err, &aiErr) {
		for _, key := range slices.Sorted(maps.Keys(aiErr.Context)) {
			// session_id is already part of every request log line.
			if key == observability.LogFieldSessionID {
				continue
			}
			attrs = append(attrs, slog.Any(key, aiErr.Context[key]))
		}
	}
	if aierrors.HTTPStatus(code) < http.StatusInternalServerError {
		reqCtx.Info("relay request rejected", append(attrs, slog.String("error", timeout.Truncate(err.Error())))...)
		return
	}
	reqCtx.Error("relay request failed", err, attrs...)
}
