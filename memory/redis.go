package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/cognisphere/core"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configure a RedisStore.
type RedisOptions struct {
	Options
	// Prefix namespaces every key. Defaults to "cognisphere".
	Prefix string
}

// RedisStore keeps each session history in a Redis list of JSON encoded
// messages at "<prefix>:memory:<session>".
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	max    int
}

var _ core.ChatMemoryStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{Prefix: "cognisphere"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{rdb: rdb, prefix: opts.Prefix, max: opts.MaxMessages}
}

// Key returns the list key of a session.
func (r *RedisStore) Key(sessionID string) string {
	return fmt.Sprintf("%s:memory:%s", r.prefix, sessionID)
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Messages returns the session history, oldest first.
func (r *RedisStore) Messages(ctx context.Context, sessionID string) ([]core.Message, error) {
	raw, err := r.rdb.LRange(ctx, r.Key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat memory from Redis: %w", err)
	}
	msgs := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode chat message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Add appends messages and applies the window.
func (r *RedisStore) Add(ctx context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, len(msgs))
	for i, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode chat message: %w", err)
		}
		values[i] = string(b)
	}

	key := r.Key(sessionID)
	if err := r.rdb.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("failed to append chat memory to Redis: %w", err)
	}
	if r.max <= 0 {
		return nil
	}

	// Reapply the window on the full list so a leading system message survives.
	current, err := r.Messages(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(current) <= r.max {
		return nil
	}
	trimmed := applyWindow(current, r.max)
	if trimmed[0].Role == core.RoleSystem && current[0].Role == core.RoleSystem {
		return r.replace(ctx, key, trimmed)
	}
	return r.rdb.LTrim(ctx, key, int64(-r.max), -1).Err()
}

func (r *RedisStore) replace(ctx context.Context, key string, msgs []core.Message) error {
	values := make([]any, len(msgs))
	for i, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		values[i] = string(b)
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.RPush(ctx, key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rewrite chat memory in Redis: %w", err)
	}
	return nil
}

// Evict deletes the session list.
func (r *RedisStore) Evict(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.rdb.Del(ctx, r.Key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to evict chat memory from Redis: %w", err)
	}
	return n > 0, nil
}
