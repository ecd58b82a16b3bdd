package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/LeadsPlus/rets/internal/auth"
	"github.com/LeadsPlus/rets/internal/capability"
	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/internal/cookies"
	internalhttp "github.com/LeadsPlus/rets/internal/http"
	"github.com/LeadsPlus/rets/internal/response"
	"github.com/LeadsPlus/rets/pkg/compact"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedScheme = errors.New("login URL scheme must be http or https")
	ErrMissingHost       = errors.New("login URL has no host")
	ErrMetadataNotXML    = errors.New("metadata response is not XML")
)

// ClientState is the mutable protocol state of one client. It is only
// touched with Client.mu held.
type ClientState struct {
	Authorization string
	Capabilities  *capability.Map
	Cookies       *cookies.Jar
}

func newClientState() *ClientState {
	return &ClientState{
		Capabilities: capability.New(),
		Cookies:      cookies.New(),
	}
}

// Client implements the rets.Client interface.
type Client struct {
	mu sync.Mutex

	httpClient *internalhttp.Client
	loginURL   *url.URL
	host       string

	userAgent         string
	userAgentPassword string
	retsVersion       string
	sessionIDCookie   string
	sendRequestID     bool

	cycle  *auth.Cycle
	state  *ClientState
	logger rets.Logger

	onSessionChange func(ctx context.Context, session rets.Session)
}

// Option configures the client beyond rets.Config.
type Option func(*Client)

// WithSessionHook calls fn with a fresh snapshot after every successful
// authentication.
func WithSessionHook(fn func(ctx context.Context, session rets.Session)) Option {
	return func(c *Client) {
		c.onSessionChange = fn
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(httpClient *internalhttp.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for config.LoginURL. It performs no I/O.
func New(config *rets.Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, rets.ErrConfigRequired
	}

	loginURL, err := ParseLoginURL(config.LoginURL)
	if err != nil {
		return nil, err
	}

	builder := config.Authorizer
	if builder == nil {
		builder = auth.NewSchemeAuthorizer(config.Username, config.Password)
	}

	client := &Client{
		loginURL:          loginURL,
		host:              HostPort(loginURL),
		userAgent:         valueOr(config.UserAgent, constants.DefaultUserAgent),
		userAgentPassword: config.UserAgentPassword,
		retsVersion:       valueOr(config.RETSVersion, constants.DefaultRETSVersion),
		sessionIDCookie:   valueOr(config.SessionIDCookie, constants.DefaultSessionIDCookie),
		sendRequestID:     config.SendRequestID,
		cycle:             auth.NewCycle(builder),
		state:             newClientState(),
		logger:            config.Logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = internalhttp.NewClient(loginURL.Scheme+"://"+loginURL.Host, transportOptions(config)...)
	}

	if config.Session != nil {
		client.restore(*config.Session)
	}

	return client, nil
}

func transportOptions(config *rets.Config) []internalhttp.Option {
	opts := []internalhttp.Option{
		internalhttp.WithDebug(config.Debug),
		internalhttp.WithRetryConfig(
			config.RetryMax,
			durationOr(config.RetryWaitMin, constants.DefaultRetryWaitMin),
			durationOr(config.RetryWaitMax, constants.DefaultRetryWaitMax),
		),
		internalhttp.WithTimeout(durationOr(config.HTTPTimeout, constants.DefaultHTTPTimeout)),
	}

	if config.Logger != nil {
		opts = append(opts, internalhttp.WithLogger(config.Logger))
	}

	if config.Interceptors != nil {
		opts = append(opts, internalhttp.WithInterceptors(config.Interceptors))
	}

	return opts
}

// ParseLoginURL validates an absolute http(s) login URL.
func ParseLoginURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, rets.ErrLoginURLRequired
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rets.ErrInvalidLoginURL, err)
	}

	if parsed.Scheme != constants.SchemeHTTP && parsed.Scheme != constants.SchemeHTTPS {
		return nil, fmt.Errorf("%w: %w: %q", rets.ErrInvalidLoginURL, ErrUnsupportedScheme, raw)
	}

	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %w: %q", rets.ErrInvalidLoginURL, ErrMissingHost, raw)
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed, nil
}

// HostPort returns host:port for u, filling in the scheme's default port.
func HostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = constants.DefaultHTTPPort
		if u.Scheme == constants.SchemeHTTPS {
			port = constants.DefaultHTTPSPort
		}
	}

	return net.JoinHostPort(u.Hostname(), port)
}

// LoginURL returns the URL the client authenticates against.
func (c *Client) LoginURL() *url.URL {
	clone := *c.loginURL

	return &clone
}

// Attempts returns the number of authentication attempts made so far.
func (c *Client) Attempts() int {
	return c.cycle.Attempts()
}

// Login authenticates unless capabilities are already known and returns them.
func (c *Client) Login(ctx context.Context) (rets.Capabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	return c.state.Capabilities.Snapshot(), nil
}

// Capability resolves name against the advertised capabilities.
func (c *Client) Capability(ctx context.Context, name string) (*url.URL, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capability(ctx, name)
}

// Request POSTs body to path with the session headers. A 401 runs the
// authentication cycle and replays the request once.
func (c *Client) Request(ctx context.Context, path string, body []byte, headers http.Header) (*rets.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, _, err := c.request(ctx, path, body, headers)
	if err != nil {
		return nil, err
	}

	return &rets.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

// Session snapshots the live state.
func (c *Client) Session() rets.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session()
}

// Restore replaces the live state with session.
func (c *Client) Restore(session rets.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.restore(session)
}

// MetadataType fetches one COMPACT metadata document.
func (c *Client) MetadataType(ctx context.Context, kind rets.MetadataType) (*xmlquery.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.metadataType(ctx, kind)
}

// Metadata fetches and decodes every metadata type. A type the server has
// no metadata for yields no rows.
func (c *Client) Metadata(ctx context.Context) (map[string][]compact.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string][]compact.Row, len(rets.MetadataTypes()))

	for _, kind := range rets.MetadataTypes() {
		doc, err := c.metadataType(ctx, kind)
		if rets.IsProtocolError(err, rets.ReplyCodeNoMetadataFound) {
			result[kind.Key()] = []compact.Row{}

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("fetching %s metadata: %w", kind, err)
		}

		document, err := compact.FromNode(doc)
		if err != nil {
			return nil, fmt.Errorf("decoding %s metadata: %w", kind, err)
		}

		result[kind.Key()] = document.All()
	}

	return result, nil
}

func (c *Client) ensureAuthenticated(ctx context.Context) error {
	if c.state.Capabilities.Loaded() {
		return nil
	}

	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	_, result, err := c.request(ctx, c.loginURL.Path, nil, nil)
	if err != nil {
		return err
	}

	if !c.state.Capabilities.Loaded() {
		entries := map[string]string{}
		if result.Document != nil {
			entries = capability.ExtractNode(result.Document)
		}

		c.state.Capabilities.Replace(entries)
		c.sessionChanged(ctx)
	}

	return nil
}

func (c *Client) capability(ctx context.Context, name string) (*url.URL, error) {
	err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	return c.state.Capabilities.Resolve(name)
}

func (c *Client) metadataType(ctx context.Context, kind rets.MetadataType) (*xmlquery.Node, error) {
	kind, err := rets.ParseMetadataType(string(kind))
	if err != nil {
		return nil, err
	}

	metadataURL, err := c.capability(ctx, constants.CapabilityGetMetadata)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	headers.Set(constants.HeaderContentType, constants.ContentTypeFormEncoded)

	body := encodeForm([][2]string{
		{"Format", constants.MetadataFormat},
		{"Type", kind.FormValue()},
		{"ID", constants.MetadataID},
	})

	_, result, err := c.request(ctx, capabilityPath(metadataURL), body, headers)
	if err != nil {
		return nil, err
	}

	if result.Document == nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotXML, kind)
	}

	return result.Document, nil
}

// request sends one exchange and handles a 401 by authenticating and, for
// anything but the login path, replaying the request once.
func (c *Client) request(ctx context.Context, path string, body []byte, headers http.Header) (*internalhttp.Response, response.Result, error) {
	resp, err := c.send(ctx, path, body, headers, c.state.Authorization)
	if err != nil {
		return nil, response.Result{}, err
	}

	result := c.classify(resp)

	switch result.Kind {
	case response.Success:
		return resp, result, nil
	case response.ProtocolFailure:
		return nil, result, result.Err()
	case response.Unauthorized:
		loginResp, loginResult, err := c.authenticate(ctx, resp)
		if err != nil {
			return nil, loginResult, err
		}

		if path == c.loginURL.Path {
			return loginResp, loginResult, nil
		}

		return c.replay(ctx, path, body, headers)
	default:
		return nil, result, fmt.Errorf("%w: %s", auth.ErrUnexpectedClassification, result.Kind)
	}
}

func (c *Client) replay(ctx context.Context, path string, body []byte, headers http.Header) (*internalhttp.Response, response.Result, error) {
	resp, err := c.send(ctx, path, body, headers, c.state.Authorization)
	if err != nil {
		return nil, response.Result{}, err
	}

	result := c.classify(resp)

	switch result.Kind {
	case response.Success:
		return resp, result, nil
	case response.Unauthorized:
		return nil, result, rets.ErrAuthorizationFailure
	default:
		return nil, result, result.Err()
	}
}

// authenticate answers the challenge carried by resp through the cycle.
func (c *Client) authenticate(ctx context.Context, challengeResp *internalhttp.Response) (*internalhttp.Response, response.Result, error) {
	challenge := challengeResp.Headers.Get(constants.HeaderWWWAuthenticate)

	c.logInfo("authorization challenge received", map[string]interface{}{
		"challenge": challenge,
		"attempt":   c.cycle.Attempts(),
	})

	var loginResp *internalhttp.Response

	outcome, err := c.cycle.Run(ctx, challenge, c.loginURL, func(ctx context.Context, authorization string) (int, []byte, error) {
		resp, err := c.send(ctx, c.loginURL.Path, nil, nil, authorization)
		if err != nil {
			return 0, nil, err
		}

		loginResp = resp

		return resp.StatusCode, resp.Body, nil
	})
	if err != nil {
		c.state.Authorization = ""
		c.state.Capabilities.Reset()

		c.logWarn("authentication failed", map[string]interface{}{
			"state": outcome.State.String(),
			"error": err.Error(),
		})

		return nil, outcome.Result, err
	}

	c.state.Authorization = outcome.Authorization
	c.state.Capabilities.Replace(outcome.Capabilities)

	c.logInfo("authenticated", map[string]interface{}{
		"capabilities": len(outcome.Capabilities),
	})

	c.sessionChanged(ctx)

	return loginResp, outcome.Result, nil
}

// send performs one POST and absorbs any cookies it sets.
func (c *Client) send(ctx context.Context, path string, body []byte, extra http.Header, authorization string) (*internalhttp.Response, error) {
	c.logInfo("posting to "+path, nil)

	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: c.buildHeaders(authorization, extra),
		Body:    body,
		Host:    c.host,
	})
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", path, err)
	}

	if c.state.Cookies.Absorb(resp.Headers.Values(constants.HeaderSetCookie)) {
		serialized, _ := c.state.Cookies.Serialize()
		c.logInfo("cookies set", map[string]interface{}{"cookies": serialized})
	}

	return resp, nil
}

func (c *Client) classify(resp *internalhttp.Response) response.Result {
	result := response.Classify(resp.StatusCode, resp.Body)
	if result.Kind == response.Success && result.Document == nil && len(strings.TrimSpace(string(resp.Body))) > 0 {
		c.logDebug("response body is not XML", map[string]interface{}{"status": resp.StatusCode})
	}

	return result
}

// buildHeaders returns the session headers with extra layered on top.
func (c *Client) buildHeaders(authorization string, extra http.Header) http.Header {
	headers := make(http.Header)
	headers.Set(constants.HeaderUserAgent, c.userAgent)
	headers.Set(constants.HeaderRETSVersion, c.retsVersion)

	if authorization != "" {
		headers.Set(constants.HeaderAuthorization, authorization)
	}

	if serialized, ok := c.state.Cookies.Serialize(); ok {
		headers.Set(constants.HeaderCookie, serialized)
	}

	requestID := ""
	if c.sendRequestID {
		requestID = uuid.NewString()
		headers.Set(constants.HeaderRequestID, requestID)
	}

	if c.userAgentPassword != "" {
		sessionID, _ := c.state.Cookies.Get(c.sessionIDCookie)
		headers.Set(constants.HeaderUAAuthorization,
			auth.UserAgentAuthorization(c.userAgent, c.userAgentPassword, requestID, sessionID, c.retsVersion))
	}

	for key, values := range extra {
		headers[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	return headers
}

func (c *Client) session() rets.Session {
	session := rets.Session{Authorization: c.state.Authorization}

	if c.state.Capabilities.Loaded() {
		session.Capabilities = c.state.Capabilities.Snapshot()
	}

	session.Cookies, _ = c.state.Cookies.Serialize()

	return session
}

func (c *Client) restore(session rets.Session) {
	c.state.Authorization = session.Authorization

	if session.Capabilities != nil {
		c.state.Capabilities.Replace(session.Capabilities)
	} else {
		c.state.Capabilities.Reset()
	}

	c.state.Cookies.Reset()
	c.state.Cookies.Restore(session.Cookies)
}

func (c *Client) sessionChanged(ctx context.Context) {
	if c.onSessionChange != nil {
		c.onSessionChange(ctx, c.session())
	}
}

func (c *Client) logInfo(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, fields)
	}
}

func (c *Client) logWarn(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}
