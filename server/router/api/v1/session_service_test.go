package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/leanmind/internal/profile"
	"github.com/hrygo/leanmind/plugin/ai/session"
)

func TestSessionAPI(t *testing.T) {
	ts := newTestServer(t, nil)
	base := SessionAPIPrefix + "/s1"

	rec := ts.do(http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do(http.MethodPost, base+"/add", `{"role":"user","content":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"role":"user","content":"Hello"}]`, rec.Body.String())
}

func TestSessionAPIErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	base := SessionAPIPrefix + "/s1"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown path", http.MethodGet, base + "/delete", "", http.StatusNotFound},
		{"add with GET", http.MethodGet, base + "/add", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, base + "/add", `{"role":`, http.StatusBadRequest},
		{"invalid role", http.MethodPost, base + "/add", `{"role":"tool","content":"x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, http.StatusText(tt.status), decodeError(t, rec).Error)
		})
	}

	history, err := ts.sessions.GetHistory(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionAPIDisabled(t *testing.T) {
	ts := newTestServer(t, func(p *profile.Profile) { p.SessionAPIEnabled = false })

	rec := ts.do(http.MethodGet, SessionAPIPrefix+"/s1/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// The remote session client and the sub-interface must agree on the wire format.
func TestRemoteSessionServiceAgainstSessionAPI(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, nil)
	server := httptest.NewServer(ts.echo)
	defer server.Close()

	remote := session.NewRemoteSessionService(server.URL+SessionAPIPrefix, server.Client())

	require.NoError(t, remote.AppendMessage(ctx, "remote s1", session.Message{Role: session.RoleUser, Content: "Hello"}))
	require.NoError(t, remote.AppendMessage(ctx, "remote s1", session.Message{Role: session.RoleAssistant, Content: "Hi there!"}))

	history, err := remote.GetHistory(ctx, "remote s1")
	require.NoError(t, err)
	assert.Equal(t, []session.Message{
		{Role: session.RoleUser, Content: "Hello"},
		{Role: session.RoleAssistant, Content: "Hi there!"},
	}, history)

	local, err := ts.sessions.GetHistory(ctx, "remote s1")
	require.NoError(t, err)
	assert.Equal(t, history, local)

	err = remote.AppendMessage(ctx, "remote s1", session.Message{Role: "tool", Content: "x"})
	assert.ErrorIs(t, err, session.ErrInvalidRole)
}
