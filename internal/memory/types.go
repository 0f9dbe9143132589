package memory

import (
	"context"
	"time"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

// Entry is a single remembered classification.
type Entry struct {
	Timestamp time.Time     `json:"timestamp"`
	Text      string        `json:"text"`
	Signal    domain.Signal `json:"signal"`
	Stage     domain.Stage  `json:"stage"`
}

// Backend persists entries in append order. Implementations only need to
// keep the most recent entries; Load returns at most limit of them,
// oldest first.
type Backend interface {
	Append(ctx context.Context, entry Entry) error
	Load(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Backend names accepted in configuration.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds memory store configuration.
type Config struct {
	Capacity int         `mapstructure:"capacity" yaml:"capacity"`
	Backend  string      `mapstructure:"backend" yaml:"backend"`
	Dir      string      `mapstructure:"dir" yaml:"dir"`
	Redis    RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the Redis list backend.
type RedisConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	DB             int    `mapstructure:"db" yaml:"db"`
	Prefix         string `mapstructure:"prefix" yaml:"prefix"`
	Password       string `mapstructure:"password" yaml:"-"`
	PasswordSecret string `mapstructure:"password_secret" yaml:"password_secret,omitempty"`
}

const (
	DefaultCapacity = 10
	DefaultDir      = ".p2p"
	DefaultFilename = "memory.jsonl"
	DefaultPrefix   = "p2p:memory:"
)
