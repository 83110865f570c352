package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/protocol"
)

// Redis key layout:
//
//	session:<id>          list of JSON transcript entries
//	session:<id>:context  JSON object of accumulated context
//	script:<name>         script content
//	scripts               set of script names
const (
	sessionKeyPrefix = "session:"
	contextKeySuffix = ":context"
	scriptKeyPrefix  = "script:"
	scriptIndexKey   = "scripts"
)

// RedisStore implements Store on a Redis backend.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: log.Component("store.redis"),
	}, nil
}

// AppendTranscript implements Store.
func (s *RedisStore) AppendTranscript(ctx context.Context, sessionID string, entry protocol.TranscriptEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: encode transcript entry: %w", err)
	}
	if err := s.client.RPush(ctx, sessionKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("store: append transcript: %w", err)
	}
	return nil
}

// FetchTranscript implements Store.
func (s *RedisStore) FetchTranscript(ctx context.Context, sessionID string) ([]protocol.TranscriptEntry, error) {
	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: fetch transcript: %w", err)
	}

	entries := make([]protocol.TranscriptEntry, 0, len(raw))
	for _, item := range raw {
		var entry protocol.TranscriptEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// A malformed entry degrades the transcript, not the fetch.
			s.logger.Warn("skipping malformed transcript entry", "session", sessionID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListSessions implements Store.
func (s *RedisStore) ListSessions(ctx context.Context) ([]string, error) {
	ids := []string{}
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, contextKeySuffix) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, sessionKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return ids, nil
}

// MergeContext implements Store.
func (s *RedisStore) MergeContext(ctx context.Context, sessionID string, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	key := contextKey(sessionID)
	current := map[string]string{}

	val, err := s.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		// First write for this session.
	case err != nil:
		return fmt.Errorf("store: read context: %w", err)
	default:
		if err := json.Unmarshal([]byte(val), &current); err != nil {
			s.logger.Warn("resetting malformed context blob", "session", sessionID, "error", err)
			current = map[string]string{}
		}
	}

	for k, v := range updates {
		current[k] = v
	}

	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("store: encode context: %w", err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("store: write context: %w", err)
	}
	return nil
}

// GetContext implements Store.
func (s *RedisStore) GetContext(ctx context.Context, sessionID string) (map[string]string, error) {
	val, err := s.client.Get(ctx, contextKey(sessionID)).Result()
	if err == redis.Nil {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get context: %w", err)
	}

	result := map[string]string{}
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("store: decode context: %w", err)
	}
	return result, nil
}

// DeleteSession implements Store.
func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID), contextKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}

// AddScript implements Store.
func (s *RedisStore) AddScript(ctx context.Context, name, content string) error {
	if err := s.client.Set(ctx, scriptKeyPrefix+name, content, 0).Err(); err != nil {
		return fmt.Errorf("store: add script: %w", err)
	}
	if err := s.client.SAdd(ctx, scriptIndexKey, name).Err(); err != nil {
		return fmt.Errorf("store: index script: %w", err)
	}
	return nil
}

// FetchScript implements Store.
func (s *RedisStore) FetchScript(ctx context.Context, name string) (string, error) {
	val, err := s.client.Get(ctx, scriptKeyPrefix+name).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: fetch script: %w", err)
	}
	return val, nil
}

// ListScripts implements Store.
func (s *RedisStore) ListScripts(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, scriptIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list scripts: %w", err)
	}
	return names, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func contextKey(id string) string {
	return sessionKeyPrefix + id + contextKeySuffix
}

// Verify RedisStore implements Store at compile time.
var _ Store = (*RedisStore)(nil)
