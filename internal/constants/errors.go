package constants

import "errors"

// CLI configuration errors.
var (
	ErrNoLoginURL       = errors.New("login URL is required (use --login-url or 'rets config set login_url URL')")
	ErrNoSessionStored  = errors.New("no stored session")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
)

// CLI request errors.
var (
	ErrInvalidHeaderFormat = errors.New("invalid header format, expected 'Name: Value'")
)
