package auth

import (
	"crypto/md5" //nolint:gosec // RETS-UA-Authorization is defined over MD5
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/icholy/digest"
)

// Static errors for err113 compliance.
var (
	ErrEmptyChallenge     = errors.New("empty WWW-Authenticate challenge")
	ErrUnsupportedScheme  = errors.New("unsupported authentication scheme")
	ErrMissingDigestNonce = errors.New("digest challenge has no nonce")
	ErrDigestChallenge    = errors.New("cannot answer digest challenge")

	ErrUnexpectedClassification = errors.New("unexpected response classification")
)

// challengeScheme returns the auth scheme of a WWW-Authenticate value and
// the parameters after it.
func challengeScheme(header string) (string, string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", ErrEmptyChallenge
	}

	scheme, params, _ := strings.Cut(header, " ")

	return scheme, strings.TrimSpace(params), nil
}

// BasicAuthorizer answers Basic challenges.
type BasicAuthorizer struct {
	Username string
	Password string
}

// BuildAuthorization implements rets.AuthorizationBuilder.
func (a *BasicAuthorizer) BuildAuthorization(challenge string, uri *url.URL, attempt int) (string, error) {
	credentials := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))

	return constants.BasicAuthScheme + " " + credentials, nil
}

// DigestAuthorizer answers Digest challenges. The nonce count sent is
// attempt+1, so repeated logins over one client lifetime never reuse a count.
type DigestAuthorizer struct {
	Username string
	Password string
	// Method defaults to POST, the method every RETS transaction here uses.
	Method string
	// CNonce generates client nonces. Defaults to a random nonce.
	CNonce func() string
}

// BuildAuthorization implements rets.AuthorizationBuilder.
func (a *DigestAuthorizer) BuildAuthorization(challenge string, uri *url.URL, attempt int) (string, error) {
	_, params, err := challengeScheme(challenge)
	if err != nil {
		return "", err
	}

	// Servers differ in the case of the scheme token.
	parsed, err := digest.ParseChallenge(constants.DigestAuthScheme + " " + params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDigestChallenge, err)
	}

	if parsed.Nonce == "" {
		return "", ErrMissingDigestNonce
	}

	method := a.Method
	if method == "" {
		method = http.MethodPost
	}

	options := digest.Options{
		Method:   method,
		URI:      uri.RequestURI(),
		Count:    attempt + 1,
		Username: a.Username,
		Password: a.Password,
	}

	if a.CNonce != nil {
		options.Cnonce = a.CNonce()
	}

	credentials, err := digest.Digest(parsed, options)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDigestChallenge, err)
	}

	return credentials.String(), nil
}

// SchemeAuthorizer dispatches on the challenge scheme.
type SchemeAuthorizer struct {
	Basic  *BasicAuthorizer
	Digest *DigestAuthorizer
}

// NewSchemeAuthorizer returns an authorizer answering Basic and Digest
// challenges with the same credentials.
func NewSchemeAuthorizer(username, password string) *SchemeAuthorizer {
	return &SchemeAuthorizer{
		Basic:  &BasicAuthorizer{Username: username, Password: password},
		Digest: &DigestAuthorizer{Username: username, Password: password},
	}
}

// BuildAuthorization implements rets.AuthorizationBuilder.
func (a *SchemeAuthorizer) BuildAuthorization(challenge string, uri *url.URL, attempt int) (string, error) {
	scheme, _, err := challengeScheme(challenge)
	if err != nil {
		return "", err
	}

	switch {
	case strings.EqualFold(scheme, constants.DigestAuthScheme):
		return a.Digest.BuildAuthorization(challenge, uri, attempt)
	case strings.EqualFold(scheme, constants.BasicAuthScheme):
		return a.Basic.BuildAuthorization(challenge, uri, attempt)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// UserAgentAuthorization builds the RETS-UA-Authorization value, a RETS
// extension outside HTTP digest:
//
//	Digest MD5(MD5(agent:password):request-id:session-id:version)
func UserAgentAuthorization(userAgent, password, requestID, sessionID, version string) string {
	a1 := md5Hex(userAgent + ":" + password)

	return constants.DigestAuthScheme + " " + md5Hex(strings.Join([]string{a1, requestID, sessionID, version}, ":"))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // protocol mandated

	return hex.EncodeToString(sum[:])
}
