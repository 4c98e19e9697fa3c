package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeSessionServer serves the session sub-interface wire format from an in-memory store.
func newFakeSessionServer(t *testing.T, backing SessionService) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.EscapedPath(), "/sessions/")
		idx := strings.LastIndex(rest, "/")
		if idx < 0 {
			http.NotFound(w, r)
			return
		}
		id, op := rest[:idx], rest[idx+1:]
		if unescaped, err := url.PathUnescape(id); err == nil {
			id = unescaped
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case op == "history":
			history, _ := backing.GetHistory(r.Context(), id)
			_ = json.NewEncoder(w).Encode(history)
		case op == "add" && r.Method == http.MethodPost:
			var m Message
			if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
				http.Error(w, `{"error":"Bad Request"}`, http.StatusBadRequest)
				return
			}
			if err := backing.AppendMessage(r.Context(), id, m); err != nil {
				http.Error(w, `{"error":"Bad Request"}`, http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(AddMessageResponse{Status: StatusOK})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRemoteSessionService(t *testing.T) {
	runSessionServiceContract(t, func(t *testing.T, maxHistory int) SessionService {
		server := newFakeSessionServer(t, NewMemorySessionStore(maxHistory))
		return NewRemoteSessionService(server.URL+"/sessions/", server.Client())
	})
}

func TestRemoteSessionServiceEscapesSessionID(t *testing.T) {
	ctx := context.Background()
	backing := NewMemorySessionStore(20)
	server := newFakeSessionServer(t, backing)
	svc := NewRemoteSessionService(server.URL+"/sessions", server.Client())

	require.NoError(t, svc.AppendMessage(ctx, "a/b c", Message{Role: RoleUser, Content: "hi"}))

	history, err := backing.GetHistory(ctx, "a/b c")
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}}, history)
}

func TestRemoteSessionServiceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("non 200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()
		svc := NewRemoteSessionService(server.URL, server.Client())

		_, err := svc.GetHistory(ctx, "s1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Error(t, svc.AppendMessage(ctx, "s1", Message{Role: RoleUser, Content: "x"}))
	})

	t.Run("unexpected add status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"queued"}`))
		}))
		defer server.Close()
		svc := NewRemoteSessionService(server.URL, server.Client())

		err := svc.AppendMessage(ctx, "s1", Message{Role: RoleUser, Content: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queued")
	})

	t.Run("unreachable", func(t *testing.T) {
		svc := NewRemoteSessionService("http://127.0.0.1:1", nil)
		_, err := svc.GetHistory(ctx, "s1")
		assert.Error(t, err)
	})
}
