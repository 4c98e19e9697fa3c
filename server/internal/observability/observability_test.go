package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/leanmind/plugin/ai/timeout"
)

func TestRequestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	reqCtx := NewRequestContext(logger, "", "s1")
	require.NotEmpty(t, reqCtx.RequestID)

	reqCtx.Error("completion failed", errors.New("boom"), slog.String(LogFieldErrorCode, "LLM_UNAVAILABLE"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "completion failed", line["msg"])
	assert.Equal(t, reqCtx.RequestID, line[LogFieldRequestID])
	assert.Equal(t, "s1", line[LogFieldSessionID])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "LLM_UNAVAILABLE", line[LogFieldErrorCode])
}

func TestRequestContextErrorIsTruncated(t *testing.T) {
	var buf bytes.Buffer
	reqCtx := NewRequestContext(slog.New(slog.NewJSONHandler(&buf, nil)), "req-1", "s1")

	reqCtx.Error("completion failed", errors.New(strings.Repeat("x", timeout.MaxTruncateLength*3)))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	logged, ok := line["error"].(string)
	require.True(t, ok)
	assert.Len(t, logged, timeout.MaxTruncateLength+len("..."))
}

func TestRequestContextRoundTrip(t *testing.T) {
	reqCtx := NewRequestContext(nil, "req-1", "s1")
	ctx := WithRequestContext(context.Background(), reqCtx)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(4)

	for i := 1; i <= 6; i++ {
		m.RecordRequest(time.Duration(i*10) * time.Millisecond)
	}
	m.RecordFailure("LLM_UNAVAILABLE")
	m.RecordFailure("LLM_UNAVAILABLE")
	m.RecordFailure("INVALID_ARGUMENT")
	m.RecordCompletion(false)
	m.RecordCompletion(true)
	m.RecordPersistFailure()
	m.RecordRateLimited()

	s := m.Snapshot()
	assert.Equal(t, int64(6), s.RequestTotal)
	assert.Equal(t, int64(3), s.RequestFailed)
	assert.Equal(t, int64(2), s.CompletionTotal)
	assert.Equal(t, int64(1), s.CompletionFailed)
	assert.Equal(t, int64(1), s.PersistFailed)
	assert.Equal(t, int64(1), s.RateLimited)
	assert.Equal(t, map[string]int64{"LLM_UNAVAILABLE": 2, "INVALID_ARGUMENT": 1}, s.ErrorCodes)
	// Only the last four durations (30..60ms) are kept.
	assert.Equal(t, 4, s.DurationCount)
	assert.Equal(t, int64(40), s.P50DurationMs)
	assert.Equal(t, int64(60), s.P95DurationMs)
	assert.InDelta(t, 50.0, s.SuccessRate(), 0.001)

	m.Reset()
	s = m.Snapshot()
	assert.Zero(t, s.RequestTotal)
	assert.Empty(t, s.ErrorCodes)
	assert.Equal(t, 100.0, s.SuccessRate())
}
