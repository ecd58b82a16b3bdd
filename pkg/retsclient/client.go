// Package retsclient provides the main entry point for creating RETS clients
package retsclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/LeadsPlus/rets/internal/client"
	"github.com/LeadsPlus/rets/internal/sessionstore"
	"github.com/LeadsPlus/rets/pkg/rets"
)

// Store configuration re-exported for callers outside this module.
type (
	StoreType        = sessionstore.Type
	StoreConfig      = sessionstore.Config
	FileStoreConfig  = sessionstore.FileConfig
	RedisStoreConfig = sessionstore.RedisConfig
	NATSStoreConfig  = sessionstore.NATSConfig
)

// Store backends.
const (
	StoreMemory = sessionstore.TypeMemory
	StoreFile   = sessionstore.TypeFile
	StoreRedis  = sessionstore.TypeRedis
	StoreNATS   = sessionstore.TypeNATS
	StoreNone   = sessionstore.TypeNone
)

// New creates a RETS client. It performs no network I/O beyond loading a
// stored session; the first login happens lazily.
func New(ctx context.Context, config *rets.Config) (rets.Client, error) {
	if config == nil {
		return nil, rets.ErrConfigRequired
	}

	if strings.TrimSpace(config.LoginURL) == "" {
		return nil, rets.ErrLoginURLRequired
	}

	normalized, err := normalizeConfig(config)
	if err != nil {
		return nil, err
	}

	key, err := SessionKey(normalized.LoginURL, normalized.Username)
	if err != nil {
		return nil, err
	}

	var opts []client.Option

	if normalized.Store != nil {
		if normalized.Session == nil {
			normalized.Session = loadSession(ctx, normalized, key)
		}

		opts = append(opts, client.WithSessionHook(persistSession(normalized, key)))
	}

	retsClient, err := client.New(normalized, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return retsClient, nil
}

// NewWithPassword creates a client for loginURL with username and password.
func NewWithPassword(ctx context.Context, loginURL, username, password string) (rets.Client, error) {
	return New(ctx, &rets.Config{
		LoginURL: loginURL,
		Username: username,
		Password: password,
	})
}

// NewStore creates a session store.
func NewStore(ctx context.Context, config *StoreConfig) (rets.SessionStore, error) {
	return sessionstore.New(ctx, config)
}

// SessionKey is the key a user's session for a login URL is stored under:
// user@host/path, with no password, query, or fragment. An empty username
// falls back to the one in the URL's user info.
func SessionKey(loginURL, username string) (string, error) {
	parsed, err := url.Parse(withScheme(strings.TrimSpace(loginURL)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", rets.ErrInvalidLoginURL, err)
	}

	if username == "" && parsed.User != nil {
		username = parsed.User.Username()
	}

	parsed.User = nil
	if username != "" {
		parsed.User = url.User(username)
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String(), nil
}

// normalizeConfig returns a copy of config with a scheme on the login URL
// and credentials taken from its user info when none are set.
func normalizeConfig(config *rets.Config) (*rets.Config, error) {
	normalized := *config

	parsed, err := url.Parse(withScheme(strings.TrimSpace(config.LoginURL)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rets.ErrInvalidLoginURL, err)
	}

	if parsed.User != nil {
		if normalized.Username == "" {
			normalized.Username = parsed.User.Username()
		}

		if password, ok := parsed.User.Password(); ok && normalized.Password == "" {
			normalized.Password = password
		}

		parsed.User = nil
	}

	normalized.LoginURL = parsed.String()

	return &normalized, nil
}

func withScheme(loginURL string) string {
	if strings.HasPrefix(loginURL, "http://") || strings.HasPrefix(loginURL, "https://") {
		return loginURL
	}

	return "https://" + loginURL
}

func loadSession(ctx context.Context, config *rets.Config, key string) *rets.Session {
	session, err := config.Store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, rets.ErrSessionNotFound) && config.Logger != nil {
			config.Logger.Warn("failed to load stored session", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}

		return nil
	}

	if config.Logger != nil {
		config.Logger.Debug("restored session", map[string]interface{}{
			"key":          key,
			"capabilities": len(session.Capabilities),
		})
	}

	return session
}

// persistSession saves every new session. Failures are logged, not returned.
func persistSession(config *rets.Config, key string) func(context.Context, rets.Session) {
	return func(ctx context.Context, session rets.Session) {
		err := config.Store.Save(ctx, key, session)
		if err != nil && config.Logger != nil {
			config.Logger.Warn("failed to persist session", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}
