package sessionstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeadsPlus/rets/internal/sessionstore"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	loginKey = "http://rets.example.com:6103/rets/login"
	otherKey = "https://other.example.com/Login.asmx/Login"
)

func sampleSession() rets.Session {
	return rets.Session{
		Authorization: `Digest username="user", realm="rets", nonce="abc", uri="/rets/login", response="0123456789abcdef"`,
		Capabilities: map[string]string{
			"Search":      "/rets/search",
			"GetMetadata": "/rets/getmetadata",
		},
		Cookies: "RETS-Session-ID=abc123; JSESSIONID=xyz",
	}
}

// testStore runs the behaviour every backend shares.
func testStore(t *testing.T, store rets.SessionStore) {
	t.Helper()

	ctx := context.Background()

	_, err := store.Load(ctx, loginKey)
	require.ErrorIs(t, err, rets.ErrSessionNotFound)

	session := sampleSession()
	require.NoError(t, store.Save(ctx, loginKey, session))

	loaded, err := store.Load(ctx, loginKey)
	require.NoError(t, err)
	assert.Equal(t, session, *loaded)

	session.Cookies = "RETS-Session-ID=def456"
	require.NoError(t, store.Save(ctx, loginKey, session))

	loaded, err = store.Load(ctx, loginKey)
	require.NoError(t, err)
	assert.Equal(t, "RETS-Session-ID=def456", loaded.Cookies)

	require.NoError(t, store.Save(ctx, otherKey, rets.Session{Authorization: "Basic dXNlcjpwYXNz"}))

	require.NoError(t, store.Delete(ctx, loginKey))

	_, err = store.Load(ctx, loginKey)
	require.ErrorIs(t, err, rets.ErrSessionNotFound)

	other, err := store.Load(ctx, otherKey)
	require.NoError(t, err)
	assert.Equal(t, "Basic dXNlcjpwYXNz", other.Authorization)
	assert.Nil(t, other.Capabilities)

	require.NoError(t, store.Delete(ctx, "never-stored"))
	require.NoError(t, store.Delete(ctx, otherKey))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	testStore(t, sessionstore.NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	store := sessionstore.NewMemoryStore()
	session := sampleSession()
	require.NoError(t, store.Save(context.Background(), loginKey, session))

	session.Capabilities["Search"] = "/changed"

	loaded, err := store.Load(context.Background(), loginKey)
	require.NoError(t, err)
	assert.Equal(t, "/rets/search", loaded.Capabilities["Search"])

	loaded.Capabilities["Search"] = "/changed-again"

	again, err := store.Load(context.Background(), loginKey)
	require.NoError(t, err)
	assert.Equal(t, "/rets/search", again.Capabilities["Search"])
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".rets", "session.yml")
	store := sessionstore.NewFileStore(path)

	testStore(t, store)

	require.NoError(t, store.Save(context.Background(), loginKey, sampleSession()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := sessionstore.NewFileStore(path)

	loaded, err := reopened.Load(context.Background(), loginKey)
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), *loaded)
	assert.Equal(t, path, reopened.Path())
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.yml")
	require.NoError(t, os.WriteFile(path, []byte("sessions: [not, a, map"), 0o600))

	_, err := sessionstore.NewFileStore(path).Load(context.Background(), loginKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, rets.ErrSessionNotFound)
}

func TestNoOpStore(t *testing.T) {
	t.Parallel()

	store := sessionstore.NewNoOpStore()
	require.NoError(t, store.Save(context.Background(), loginKey, sampleSession()))

	_, err := store.Load(context.Background(), loginKey)
	require.ErrorIs(t, err, rets.ErrSessionNotFound)
	require.NoError(t, store.Delete(context.Background(), loginKey))
	require.NoError(t, store.Close())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name    string
		config  *sessionstore.Config
		want    interface{}
		wantErr error
	}{
		{name: "nil config", config: nil, want: &sessionstore.MemoryStore{}},
		{name: "memory", config: &sessionstore.Config{Type: sessionstore.TypeMemory}, want: &sessionstore.MemoryStore{}},
		{name: "none", config: &sessionstore.Config{Type: sessionstore.TypeNone}, want: &sessionstore.NoOpStore{}},
		{
			name:   "file",
			config: &sessionstore.Config{Type: sessionstore.TypeFile, File: &sessionstore.FileConfig{Path: "/tmp/rets/session.yml"}},
			want:   &sessionstore.FileStore{},
		},
		{name: "file without path", config: &sessionstore.Config{Type: sessionstore.TypeFile}, wantErr: sessionstore.ErrFileConfigRequired},
		{name: "redis without address", config: &sessionstore.Config{Type: sessionstore.TypeRedis}, wantErr: sessionstore.ErrRedisConfigRequired},
		{name: "nats without URL", config: &sessionstore.Config{Type: sessionstore.TypeNATS}, wantErr: sessionstore.ErrNATSConfigRequired},
		{name: "unknown", config: &sessionstore.Config{Type: "etcd"}, wantErr: sessionstore.ErrUnsupportedType},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			store, err := sessionstore.New(ctx, testCase.config)
			if testCase.wantErr != nil {
				require.ErrorIs(t, err, testCase.wantErr)

				return
			}

			require.NoError(t, err)
			assert.IsType(t, testCase.want, store)
		})
	}
}

func TestDefaultFilePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("/home/agent", ".rets", "session.yml"), sessionstore.DefaultFilePath("/home/agent"))
}

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	defer client.FlushDB(ctx)

	store, err := sessionstore.New(ctx, &sessionstore.Config{
		Type:  sessionstore.TypeRedis,
		Redis: &sessionstore.RedisConfig{Client: client, KeyPrefix: "rets:test:"},
	})
	require.NoError(t, err)

	defer store.Close()

	testStore(t, store)

	require.NoError(t, store.Save(ctx, loginKey, sampleSession()))

	raw, err := client.Get(ctx, "rets:test:"+loginKey).Result()
	require.NoError(t, err)
	assert.Contains(t, raw, `"cookies":"RETS-Session-ID=abc123; JSESSIONID=xyz"`)
}

func TestNATSStore(t *testing.T) {
	conn, err := nats.Connect(nats.DefaultURL, nats.Timeout(time.Second))
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	store, err := sessionstore.New(ctx, &sessionstore.Config{
		Type: sessionstore.TypeNATS,
		NATS: &sessionstore.NATSConfig{Conn: conn, Bucket: "rets_sessions_test"},
	})
	if err != nil {
		t.Skipf("JetStream not available: %v", err)
	}

	defer store.Close()

	testStore(t, store)
}
