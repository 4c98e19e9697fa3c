// Package relay implements the chat relay pipeline: read history, ask the model, record the turn.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/leanmind/plugin/ai"
	"github.com/hrygo/leanmind/plugin/ai/session"
	"github.com/hrygo/leanmind/plugin/ai/timeout"
	aierrors "github.com/hrygo/leanmind/server/internal/errors"
	"github.com/hrygo/leanmind/server/internal/observability"
)

// Config holds relay tuning knobs. Zero values fall back to defaults.
type Config struct {
	SystemPrompt             string
	CompletionTimeout        time.Duration
	PersistTimeout           time.Duration
	MaxConcurrentCompletions int
}

// LogFieldStage names the pipeline step an error came from.
const LogFieldStage = "stage"

// Pipeline stages attached to errors returned by Chat.
const (
	StageHistory    = "history"
	StageCompletion = "completion"
)

// ChatRequest is a validated relay request.
type ChatRequest struct {
	Input     string
	SessionID string
}

// ChatResponse is returned to the caller on success.
type ChatResponse struct {
	Output    string `json:"output"`
	SessionID string `json:"sessionId"`
}

// Service runs the relay pipeline.
type Service struct {
	sessions session.SessionService
	llm      ai.LLMService
	metrics  *observability.Metrics

	systemPrompt      string
	completionTimeout time.Duration
	persistTimeout    time.Duration

	// completions bounds in-flight calls to the completion API.
	completions *semaphore.Weighted
}

// NewService creates a relay service. metrics may be nil.
func NewService(sessions session.SessionService, llm ai.LLMService, cfg Config, metrics *observability.Metrics) *Service {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = timeout.CompletionTimeout
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = timeout.PersistTimeout
	}
	if cfg.MaxConcurrentCompletions <= 0 {
		cfg.MaxConcurrentCompletions = 16
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}

	return &Service{
		sessions:          sessions,
		llm:               llm,
		metrics:           metrics,
		systemPrompt:      cfg.SystemPrompt,
		completionTimeout: cfg.CompletionTimeout,
		persistTimeout:    cfg.PersistTimeout,
		completions:       semaphore.NewWeighted(int64(cfg.MaxConcurrentCompletions)),
	}
}

// Validate rejects requests that must not cause any I/O.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Input) == "" {
		return aierrors.InvalidArgument("input is required")
	}
	if r.SessionID == "" {
		return aierrors.InvalidArgument("sessionId is required")
	}
	return nil
}

// Chat relays one user message. Errors are *aierrors.AIError values.
// Once a reply is obtained the request succeeds even if recording the turn fails.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reqCtx := requestContext(ctx, req.SessionID)

	history, err := s.sessions.GetHistory(ctx, req.SessionID)
	if err != nil {
		return nil, aierrors.HistoryUnavailable(err).
			WithContext(observability.LogFieldSessionID, req.SessionID).
			WithContext(LogFieldStage, StageHistory)
	}

	messages := ai.FormatMessages(s.systemPrompt, req.Input, toLLMMessages(history))
	reply, aiErr := s.complete(ctx, messages)
	if aiErr != nil {
		return nil, aiErr.
			WithContext(observability.LogFieldSessionID, req.SessionID).
			WithContext(LogFieldStage, StageCompletion)
	}

	s.recordTurn(ctx, reqCtx, req.SessionID, req.Input, reply)

	reqCtx.Debug("relay reply ready",
		slog.Int(observability.LogFieldHistoryLen, len(history)),
		slog.Int(observability.LogFieldReplyLen, len(reply)),
	)
	return &ChatResponse{Output: reply, SessionID: req.SessionID}, nil
}

func (s *Service) complete(ctx context.Context, messages []ai.Message) (string, *aierrors.AIError) {
	if err := s.completions.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", aierrors.Timeout("request deadline passed while waiting for the completion service", err)
		}
		return "", aierrors.Internal("request canceled while waiting for the completion service", err)
	}
	defer s.completions.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, s.completionTimeout)
	defer cancel()

	reply, err := s.llm.Chat(callCtx, messages)
	s.metrics.RecordCompletion(err != nil)
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, ai.ErrEmptyResponse):
		return "", aierrors.LLMUnavailable("completion returned no usable reply", err)
	case errors.Is(err, context.DeadlineExceeded):
		return "", aierrors.Timeout("completion request timed out", err)
	case errors.Is(err, context.Canceled):
		return "", aierrors.Internal("request canceled during completion", err)
	default:
		return "", aierrors.LLMUnavailable("completion request failed", err)
	}
}

// recordTurn appends the user message and then the reply. Each write gets its own
// deadline and survives cancellation of the caller's request.
func (s *Service) recordTurn(ctx context.Context, reqCtx *observability.RequestContext, sessionID, input, reply string) {
	base := context.WithoutCancel(ctx)
	turn := []session.Message{
		{Role: session.RoleUser, Content: input},
		{Role: session.RoleAssistant, Content: reply},
	}

	for _, msg := range turn {
		writeCtx, cancel := context.WithTimeout(base, s.persistTimeout)
		err := s.sessions.AppendMessage(writeCtx, sessionID, msg)
		cancel()
		if err != nil {
			s.metrics.RecordPersistFailure()
			reqCtx.Warn("failed to record message",
				slog.String(observability.LogFieldRole, msg.Role),
				slog.String("error", timeout.Truncate(err.Error())),
			)
		}
	}
}

func requestContext(ctx context.Context, sessionID string) *observability.RequestContext {
	if reqCtx, ok := observability.FromContext(ctx); ok {
		return reqCtx
	}
	return observability.NewRequestContext(slog.Default(), "", sessionID)
}

func toLLMMessages(history []session.Message) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, m := range history {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
