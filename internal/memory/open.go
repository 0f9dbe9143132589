package memory

import (
	"context"
	"fmt"
)

// Open builds a Store for cfg, attaches the configured backend and loads
// any persisted history into it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	var b Backend
	switch cfg.Backend {
	case "", BackendFile:
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultDir
		}
		fl, err := NewFileLog(dir, capacity)
		if err != nil {
			return nil, err
		}
		b = fl
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("memory backend redis requires redis.addr")
		}
		b = NewRedisLog(cfg.Redis, capacity)
	case BackendNone:
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Backend)
	}

	var opts []Option
	if b != nil {
		opts = append(opts, WithBackend(b))
	}
	store := NewStore(capacity, opts...)
	if err := store.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
