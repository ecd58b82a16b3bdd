package rets

import (
	"errors"
	"fmt"

	"github.com/LeadsPlus/rets/pkg/compact"
)

// ProtocolError is a non-zero ReplyCode carried by a well-formed RETS reply.
type ProtocolError struct {
	Code int    `json:"reply_code" yaml:"reply_code"`
	Text string `json:"reply_text" yaml:"reply_text"`
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("got error code %d (%s)", e.Code, e.Text)
}

// MalformedResponseError reports a capability URL the server advertised
// that does not parse as a URI.
type MalformedResponseError struct {
	Capability string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unable to parse capability URL for %s: %q", e.Capability, e.URL)
}

// Unwrap returns the underlying parse error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Common reply codes.
const (
	ReplyCodeSuccess            = 0
	ReplyCodeInvalidCredentials = 20013
	ReplyCodeNoRecordsFound     = 20201
	ReplyCodeNoMetadataFound    = 20503
)

// Static errors for err113 compliance.
var (
	// ErrInvalidDelimiter is returned when a COMPACT document carries an
	// empty DELIMITER value.
	ErrInvalidDelimiter = compact.ErrInvalidDelimiter

	ErrAuthorizationFailure = errors.New("authorization failed, check credentials")
	ErrCapabilityNotFound   = errors.New("capability not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrLoginURLRequired     = errors.New("login URL is required")
	ErrConfigRequired       = errors.New("config is required")
	ErrInvalidLoginURL      = errors.New("invalid login URL")
	ErrUnknownMetadataType  = errors.New("unknown metadata type")
)

// IsProtocolError reports whether err carries a RETS reply with the given code.
// A negative code matches any ProtocolError.
func IsProtocolError(err error, code int) bool {
	protoErr := &ProtocolError{}
	if !errors.As(err, &protoErr) {
		return false
	}

	return code < 0 || protoErr.Code == code
}

// IsAuthorizationFailure reports whether err is a rejected challenge-response.
func IsAuthorizationFailure(err error) bool {
	return errors.Is(err, ErrAuthorizationFailure)
}

// IsMalformedResponse reports whether err is an unparsable capability URL.
func IsMalformedResponse(err error) bool {
	malformed := &MalformedResponseError{}

	return errors.As(err, &malformed)
}
