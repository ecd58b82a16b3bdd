package sessionstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig configures the NATS JetStream key-value store.
type NATSConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string

	// Conn is an existing connection. The store does not close it.
	Conn *nats.Conn

	// Bucket defaults to "rets_sessions".
	Bucket string

	// TTL expires stored sessions. Zero keeps them until deleted.
	TTL time.Duration
}

// NATSStore stores sessions as JSON values in a KV bucket.
type NATSStore struct {
	conn     *nats.Conn
	kv       jetstream.KeyValue
	ownsConn bool
}

// NewNATSStore connects to NATS and creates or updates the bucket.
func NewNATSStore(ctx context.Context, config *NATSConfig) (*NATSStore, error) {
	store := &NATSStore{conn: config.Conn}

	if store.conn == nil {
		conn, err := nats.Connect(config.URL, nats.Timeout(constants.ShortHTTPTimeout))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		store.conn = conn
		store.ownsConn = true
	}

	js, err := jetstream.New(store.conn)
	if err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "RETS client sessions",
		TTL:         config.TTL,
	})
	if err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}

	store.kv = kv

	return store, nil
}

// Load reads the session stored under key.
func (s *NATSStore) Load(ctx context.Context, key string) (*rets.Session, error) {
	entry, err := s.kv.Get(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, rets.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}

	var session rets.Session

	err = json.Unmarshal(entry.Value(), &session)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Save stores session under key.
func (s *NATSStore) Save(ctx context.Context, key string, session rets.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.kv.Put(ctx, encodeKey(key), data)
	if err != nil {
		return fmt.Errorf("failed to put session %s: %w", key, err)
	}

	return nil
}

// Delete removes the session stored under key.
func (s *NATSStore) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}

	return nil
}

// Close drains the connection if the store opened it.
func (s *NATSStore) Close() error {
	if !s.ownsConn || s.conn == nil {
		return nil
	}

	return s.conn.Drain()
}

// encodeKey maps a login URL onto the KV key alphabet [-_=.a-zA-Z0-9/].
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
