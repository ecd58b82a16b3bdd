// Package auth drives the RETS challenge-response login and builds the
// Authorization and RETS-UA-Authorization header values.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/LeadsPlus/rets/internal/capability"
	"github.com/LeadsPlus/rets/internal/response"
	"github.com/LeadsPlus/rets/pkg/rets"
)

// State is a position in the login state machine.
type State int

const (
	Anonymous State = iota
	Challenged
	Authenticated
	Rejected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Challenged:
		return "challenged"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// LoginFunc re-issues the login request carrying authorization and returns
// the reply status and body.
type LoginFunc func(ctx context.Context, authorization string) (int, []byte, error)

// Outcome is the result of one Cycle.Run.
type Outcome struct {
	State         State
	Authorization string
	Capabilities  map[string]string
	Result        response.Result
}

// Cycle answers 401 challenges. Its attempt counter lives as long as the
// Cycle and is never reset, so every re-login hands the builder a larger
// attempt number.
type Cycle struct {
	builder  rets.AuthorizationBuilder
	attempts atomic.Int64
}

// NewCycle returns a cycle using builder for Authorization headers.
func NewCycle(builder rets.AuthorizationBuilder) *Cycle {
	return &Cycle{builder: builder}
}

// Attempts returns how many authentication attempts have been made.
func (c *Cycle) Attempts() int {
	return int(c.attempts.Load())
}

// nextAttempt returns the current count and increments it.
func (c *Cycle) nextAttempt() int {
	return int(c.attempts.Add(1) - 1)
}

// Run answers challenge and retries the login exactly once. A second 401
// ends in Rejected with rets.ErrAuthorizationFailure. Any other retry
// response is Authenticated only when its ReplyCode is 0 (or absent); a
// non-zero ReplyCode ends in Rejected with a *rets.ProtocolError and
// extracts no capabilities.
func (c *Cycle) Run(ctx context.Context, challenge string, loginURI *url.URL, login LoginFunc) (*Outcome, error) {
	outcome := &Outcome{State: Challenged}

	authorization, err := c.builder.BuildAuthorization(challenge, loginURI, c.nextAttempt())
	if err != nil {
		outcome.State = Rejected

		return outcome, fmt.Errorf("building authorization header: %w", err)
	}

	status, body, err := login(ctx, authorization)
	if err != nil {
		outcome.State = Rejected

		return outcome, fmt.Errorf("retrying login: %w", err)
	}

	outcome.Result = response.Classify(status, body)

	switch outcome.Result.Kind {
	case response.Unauthorized:
		outcome.State = Rejected

		return outcome, rets.ErrAuthorizationFailure
	case response.ProtocolFailure:
		outcome.State = Rejected

		return outcome, outcome.Result.Err()
	case response.Success:
		outcome.State = Authenticated
		outcome.Authorization = authorization
		outcome.Capabilities = map[string]string{}

		if outcome.Result.Document != nil {
			outcome.Capabilities = capability.ExtractNode(outcome.Result.Document)
		}

		return outcome, nil
	default:
		outcome.State = Rejected

		return outcome, fmt.Errorf("%w: %s", ErrUnexpectedClassification, outcome.Result.Kind)
	}
}
