package memory

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisLog persists entries in a capped Redis list (RPUSH + LTRIM), so
// several processes can share one classification history.
type RedisLog struct {
	client   *backend.Client
	prefix   string
	capacity int
	owned    bool
}

// RedisOption configures a RedisLog.
type RedisOption func(*RedisLog)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLog) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewRedisLog connects to Redis using cfg.
func NewRedisLog(cfg RedisConfig, capacity int, opts ...RedisOption) *RedisLog {
	rdb := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	l := NewRedisLogFromClient(rdb, capacity, append([]RedisOption{WithPrefix(cfg.Prefix)}, opts...)...)
	l.owned = true
	return l
}

// NewRedisLogFromClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisLogFromClient(client *backend.Client, capacity int, opts ...RedisOption) *RedisLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &RedisLog{
		client:   client,
		prefix:   DefaultPrefix,
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLog) key() string {
	return l.prefix + "entries"
}

// Append pushes the entry and trims the list to capacity.
func (l *RedisLog) Append(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entry: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.key(), data)
	pipe.LTrim(ctx, l.key(), int64(-l.capacity), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Load returns the newest limit entries, oldest first.
func (l *RedisLog) Load(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = l.capacity
	}
	vals, err := l.client.LRange(ctx, l.key(), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}

	entries := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close closes the client if this log created it.
func (l *RedisLog) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
