// Package sessionstore persists RETS sessions between client lifetimes.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
)

// Type selects a store backend.
type Type string

const (
	// TypeMemory keeps sessions for the life of the process.
	TypeMemory Type = "memory"

	// TypeFile writes sessions to a YAML file.
	TypeFile Type = "file"

	// TypeRedis stores sessions in Redis.
	TypeRedis Type = "redis"

	// TypeNATS stores sessions in a NATS JetStream key-value bucket.
	TypeNATS Type = "nats"

	// TypeNone stores nothing.
	TypeNone Type = "none"
)

// Static errors for err113 compliance.
var (
	ErrFileConfigRequired  = errors.New("file path required for file session store")
	ErrRedisConfigRequired = errors.New("redis address required for redis session store")
	ErrNATSConfigRequired  = errors.New("NATS URL required for NATS session store")
	ErrUnsupportedType     = errors.New("unsupported session store type")
)

// Config configures a store backend.
type Config struct {
	// Type is the store backend type.
	Type Type

	File  *FileConfig
	Redis *RedisConfig
	NATS  *NATSConfig
}

// FileConfig configures the file store.
type FileConfig struct {
	Path string
}

// DefaultFilePath returns $HOME/.rets/session.yml under home.
func DefaultFilePath(home string) string {
	return filepath.Join(home, constants.ConfigDirName, constants.DefaultSessionFile)
}

// New creates a store from configuration. A nil config yields a memory store.
func New(ctx context.Context, config *Config) (rets.SessionStore, error) {
	if config == nil {
		return NewMemoryStore(), nil
	}

	switch config.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil

	case TypeFile:
		if config.File == nil || config.File.Path == "" {
			return nil, ErrFileConfigRequired
		}

		return NewFileStore(config.File.Path), nil

	case TypeRedis:
		if config.Redis == nil || (config.Redis.Addr == "" && config.Redis.Client == nil) {
			return nil, ErrRedisConfigRequired
		}

		return NewRedisStore(ctx, config.Redis)

	case TypeNATS:
		if config.NATS == nil || (config.NATS.URL == "" && config.NATS.Conn == nil) {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSStore(ctx, config.NATS)

	case TypeNone:
		return NewNoOpStore(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, config.Type)
	}
}

// NoOpStore is a store that keeps nothing.
type NoOpStore struct{}

// NewNoOpStore creates a new no-op store.
func NewNoOpStore() *NoOpStore {
	return &NoOpStore{}
}

// Load always reports that no session is stored.
func (s *NoOpStore) Load(ctx context.Context, key string) (*rets.Session, error) {
	return nil, rets.ErrSessionNotFound
}

// Save does nothing.
func (s *NoOpStore) Save(ctx context.Context, key string, session rets.Session) error {
	return nil
}

// Delete does nothing.
func (s *NoOpStore) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (s *NoOpStore) Close() error {
	return nil
}
