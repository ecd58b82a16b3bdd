package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and session files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as store pings.
	ShortHTTPTimeout = 5 * time.Second
)

// Transport retry limits. These apply to connection errors and 5xx
// responses only; 401 handling belongs to the authentication cycle.
const (
	// DefaultRetryMax is the default maximum number of transport retries.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Protocol defaults.
const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "Client/1.0"

	// DefaultRETSVersion is sent in the RETS-Version header.
	DefaultRETSVersion = "RETS/1.7.2"

	// DefaultSessionIDCookie names the cookie carrying the server session id.
	DefaultSessionIDCookie = "RETS-Session-ID"

	// MetadataFormat is the only metadata encoding this client requests.
	MetadataFormat = "COMPACT"

	// MetadataID requests metadata for every resource.
	MetadataID = "0"
)

// Header names.
const (
	HeaderUserAgent       = "User-Agent"
	HeaderRETSVersion     = "RETS-Version"
	HeaderAuthorization   = "Authorization"
	HeaderCookie          = "Cookie"
	HeaderSetCookie       = "Set-Cookie"
	HeaderWWWAuthenticate = "WWW-Authenticate"
	HeaderUAAuthorization = "RETS-UA-Authorization"
	HeaderRequestID       = "RETS-Request-ID"
	HeaderContentType     = "Content-Type"

	ContentTypeFormEncoded = "application/x-www-form-urlencoded"
)

// CapabilityGetMetadata names the capability metadata is fetched from.
const (
	CapabilityGetMetadata = "GetMetadata"
)

// Authentication schemes.
const (
	DigestAuthScheme = "Digest"
	BasicAuthScheme  = "Basic"
)

// URL defaults used when building the Host header.
const (
	SchemeHTTP       = "http"
	SchemeHTTPS      = "https"
	DefaultHTTPPort  = "80"
	DefaultHTTPSPort = "443"
)

// Session store defaults.
const (
	// DefaultRedisKeyPrefix prefixes every session key written to Redis.
	DefaultRedisKeyPrefix = "rets:session:"

	// DefaultNATSBucket is the JetStream key-value bucket holding sessions.
	DefaultNATSBucket = "rets_sessions"

	// DefaultSessionFile is the session file name under the config directory.
	DefaultSessionFile = "session.yml"

	// ConfigDirName is the directory under $HOME holding CLI state.
	ConfigDirName = ".rets"

	// DefaultSessionStoreKind is the store the CLI uses when none is configured.
	DefaultSessionStoreKind = "file"
)

// Format constants.
const (
	// FormatJSON represents JSON output format.
	FormatJSON = "json"

	// FormatYAML represents YAML output format.
	FormatYAML = "yaml"

	// FormatTable represents table output format.
	FormatTable = "table"
)

// CLI argument counts.
const (
	// MinimumArgumentCount is the argument count for KEY VALUE commands.
	MinimumArgumentCount = 2
)

// Display constants.
const (
	// NotAvailable represents unavailable data.
	NotAvailable = "N/A"

	// MaskedSecret is shown in place of passwords and authorization values.
	MaskedSecret = "***"
)
