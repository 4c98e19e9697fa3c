package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces transcript lists in a shared Redis.
const DefaultRedisKeyPrefix = "leanmind:session:"

// NewRedisClient connects to the Redis server described by a redis:// or rediss:// URL.
func NewRedisClient(ctx context.Context, dsn string) (*redis.Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis dsn")
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("Redis session store connected", "addr", opts.Addr)
	return client, nil
}

// redisStore keeps each transcript as a Redis list of JSON encoded messages.
type redisStore struct {
	client     *redis.Client
	prefix     string
	maxHistory int
}

// NewRedisSessionStore creates a Redis backed SessionService.
func NewRedisSessionStore(client *redis.Client, prefix string, maxHistory int) SessionService {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &redisStore{
		client:     client,
		prefix:     prefix,
		maxHistory: normalizeMaxHistory(maxHistory),
	}
}

func (s *redisStore) key(sessionID string) string {
	return s.prefix + sessionID + ":messages"
}

func (s *redisStore) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (s *redisStore) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if err := validateAppend(sessionID, msg); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	key := s.key(sessionID)
	// MULTI/EXEC keeps push and trim atomic with respect to other clients.
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

var _ SessionService = (*redisStore)(nil)
