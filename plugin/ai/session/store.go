package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/leanmind/plugin/ai/cache"
	"github.com/hrygo/leanmind/store"
)

const (
	cachePrefix = "session:"
	cacheTTL    = 10 * time.Minute
)

// sessionStore implements SessionService on the SQL store with an optional read-through cache.
type sessionStore struct {
	store      *store.Store
	cache      cache.CacheService
	maxHistory int
}

// NewSessionStore creates a SQL backed session store. cache may be nil.
func NewSessionStore(store *store.Store, cache cache.CacheService, maxHistory int) SessionService {
	return &sessionStore{
		store:      store,
		cache:      cache,
		maxHistory: normalizeMaxHistory(maxHistory),
	}
}

func (s *sessionStore) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	if cached, ok := s.loadFromCache(ctx, sessionID); ok {
		return cached, nil
	}

	limit := s.maxHistory
	list, err := s.store.ListChatMessages(ctx, &store.FindChatMessage{
		SessionID: sessionID,
		Limit:     &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]Message, 0, len(list))
	for _, m := range list {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}

	s.updateCache(ctx, sessionID, messages)
	return messages, nil
}

func (s *sessionStore) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if err := validateAppend(sessionID, msg); err != nil {
		return err
	}

	_, err := s.store.AppendChatMessage(ctx, &store.AppendChatMessage{
		Message: &store.ChatMessage{
			UID:       shortuuid.New(),
			SessionID: sessionID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedTs: time.Now().Unix(),
		},
		Keep: s.maxHistory,
	})
	// Invalidate even on failure: the transaction outcome is unknown when the commit errors.
	s.invalidateCache(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// updateCache stores the history in cache.
func (s *sessionStore) updateCache(ctx context.Context, sessionID string, messages []Message) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(messages)
	if err != nil {
		slog.Warn("failed to marshal history for cache", "error", err)
		return
	}

	key := cachePrefix + sessionID
	if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
		slog.Warn("failed to update cache", "key", key, "error", err)
	}
}

// loadFromCache retrieves the history from cache.
func (s *sessionStore) loadFromCache(ctx context.Context, sessionID string) ([]Message, bool) {
	if s.cache == nil {
		return nil, false
	}

	key := cachePrefix + sessionID
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	messages := []Message{}
	if err := json.Unmarshal(data, &messages); err != nil {
		slog.Warn("failed to unmarshal cached history", "key", key, "error", err)
		return nil, false
	}
	return messages, true
}

// invalidateCache removes the history from cache.
func (s *sessionStore) invalidateCache(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}

	key := cachePrefix + sessionID
	if err := s.cache.Invalidate(ctx, key); err != nil {
		slog.Warn("failed to invalidate cache", "key", key, "error", err)
	}
}

// Ensure sessionStore implements SessionService
var _ SessionService = (*sessionStore)(nil)
