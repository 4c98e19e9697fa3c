package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/leanmind/plugin/ai/cache"
	storetest "github.com/hrygo/leanmind/store/test"
)

func newTestCache(t *testing.T) *cache.Service {
	t.Helper()
	c := cache.NewService(cache.ServiceConfig{Capacity: 100, DefaultTTL: time.Minute, CleanupInterval: time.Minute})
	t.Cleanup(c.Close)
	return c
}

func TestSessionStore(t *testing.T) {
	runSessionServiceContract(t, func(t *testing.T, maxHistory int) SessionService {
		return NewSessionStore(storetest.NewTestingStore(context.Background(), t), nil, maxHistory)
	})
}

func TestSessionStoreWithCache(t *testing.T) {
	runSessionServiceContract(t, func(t *testing.T, maxHistory int) SessionService {
		return NewSessionStore(storetest.NewTestingStore(context.Background(), t), newTestCache(t), maxHistory)
	})
}

func TestSessionStoreCacheIsInvalidatedOnAppend(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	svc := NewSessionStore(storetest.NewTestingStore(ctx, t), c, 20)

	require.NoError(t, svc.AppendMessage(ctx, "s1", Message{Role: RoleUser, Content: "Hello"}))
	_, err := svc.GetHistory(ctx, "s1")
	require.NoError(t, err)

	_, cached := c.Get(ctx, cachePrefix+"s1")
	assert.True(t, cached, "history should be cached after a read")

	require.NoError(t, svc.AppendMessage(ctx, "s1", Message{Role: RoleAssistant, Content: "Hi there!"}))
	_, cached = c.Get(ctx, cachePrefix+"s1")
	assert.False(t, cached, "append should invalidate the cached history")

	history, err := svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSessionStoreIgnoresCorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	svc := NewSessionStore(storetest.NewTestingStore(ctx, t), c, 20)

	require.NoError(t, svc.AppendMessage(ctx, "s1", Message{Role: RoleUser, Content: "Hello"}))
	require.NoError(t, c.Set(ctx, cachePrefix+"s1", []byte("not json"), time.Minute))

	history, err := svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "Hello"}}, history)
}
