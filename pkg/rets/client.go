package rets

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/LeadsPlus/rets/pkg/compact"
	"github.com/antchfx/xmlquery"
)

// SessionClient exposes the authenticated protocol session.
type SessionClient interface {
	// Login authenticates if needed and returns the advertised capabilities.
	// It does not re-authenticate once capabilities are known.
	Login(ctx context.Context) (Capabilities, error)
	// Capability resolves a named capability URL, logging in first if needed.
	Capability(ctx context.Context, name string) (*url.URL, error)
	// Session snapshots the authorization header, capabilities and cookies.
	Session() Session
	// Restore replaces the live state with a previously captured session.
	Restore(session Session)
}

// MetadataClient retrieves COMPACT metadata.
type MetadataClient interface {
	// MetadataType fetches one metadata type and returns the parsed XML.
	MetadataType(ctx context.Context, kind MetadataType) (*xmlquery.Node, error)
	// Metadata fetches every metadata type and decodes the rows, keyed by
	// MetadataType.Key.
	Metadata(ctx context.Context) (map[string][]compact.Row, error)
}

// Client is a RETS protocol client.
type Client interface {
	SessionClient
	MetadataClient

	// Request POSTs body to path with the session headers attached.
	Request(ctx context.Context, path string, body []byte, headers http.Header) (*Response, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// AuthorizationBuilder turns a WWW-Authenticate challenge into an
// Authorization header value. attempt counts every authentication attempt
// made by the client, starting at zero.
type AuthorizationBuilder interface {
	BuildAuthorization(challenge string, uri *url.URL, attempt int) (string, error)
}

// Config represents client configuration for building a rets.Client.
//
// # Authentication
//
// The client sends the first login request without credentials. When the
// server answers 401 the AuthorizationBuilder (Basic or Digest, picked from
// the challenge unless one is supplied) builds the Authorization header from
// Username and Password, and the login is retried exactly once.
//
// # Sessions
//
// Session restores a previously captured snapshot so no login round trip is
// needed. When Store is set, retsclient.New loads the session stored for the
// login URL and saves the session again after every successful login.
type Config struct {
	// LoginURL: absolute URL of the RETS Login transaction. Its scheme, host
	// and port are used for every later request.
	LoginURL string
	// Username and Password are handed to the authorization builder.
	Username string
	Password string
	// UserAgent: defaults to "Client/1.0".
	UserAgent string
	// UserAgentPassword: when set, every request carries RETS-UA-Authorization.
	UserAgentPassword string
	// RETSVersion: defaults to "RETS/1.7.2".
	RETSVersion string
	// SessionIDCookie: cookie whose value feeds RETS-UA-Authorization.
	// Defaults to "RETS-Session-ID".
	SessionIDCookie string
	// SendRequestID: attach a fresh RETS-Request-ID to every request.
	SendRequestID bool
	// Authorizer overrides the scheme-selecting builder.
	Authorizer AuthorizationBuilder

	// HTTPTimeout: per-request transport timeout. Zero uses the default.
	HTTPTimeout time.Duration
	// RetryMax: transport retries for connection errors and 5xx responses.
	// Zero disables them.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// Interceptors run around every HTTP exchange.
	Interceptors *InterceptorChain

	// Session: optional snapshot to resume.
	Session *Session
	// Store: optional persistence for sessions, keyed by login URL.
	Store SessionStore
}
