package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	// Addr is host:port of the Redis server. Ignored when Client is set.
	Addr     string
	Password string
	DB       int

	// Client is an existing client. The store does not close it.
	Client *redis.Client

	// KeyPrefix defaults to "rets:session:".
	KeyPrefix string

	// TTL expires stored sessions. Zero keeps them until deleted.
	TTL time.Duration
}

// RedisStore stores sessions as JSON strings.
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	ownsClient bool
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config *RedisConfig) (*RedisStore, error) {
	store := &RedisStore{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}

	if store.keyPrefix == "" {
		store.keyPrefix = constants.DefaultRedisKeyPrefix
	}

	if store.client == nil {
		store.client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
		store.ownsClient = true
	}

	err := store.client.Ping(ctx).Err()
	if err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return store, nil
}

// Load reads the session stored under key.
func (s *RedisStore) Load(ctx context.Context, key string) (*rets.Session, error) {
	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, rets.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}

	var session rets.Session

	err = json.Unmarshal(data, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Save stores session under key.
func (s *RedisStore) Save(ctx context.Context, key string, session rets.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.client.Set(ctx, s.buildKey(key), data, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set session %s: %w", key, err)
	}

	return nil
}

// Delete removes the session stored under key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	err := s.client.Del(ctx, s.buildKey(key)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}

	return nil
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if !s.ownsClient {
		return nil
	}

	return s.client.Close()
}

func (s *RedisStore) buildKey(key string) string {
	return s.keyPrefix + key
}
