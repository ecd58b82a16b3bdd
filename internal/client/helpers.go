package client

import (
	"net/url"
	"strings"
	"time"

	"github.com/LeadsPlus/rets/pkg/rets"
)

var _ rets.Client = (*Client)(nil)

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}

	return value
}

// encodeForm joins pairs as a form body, keeping their order.
func encodeForm(pairs [][2]string) []byte {
	encoded := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		encoded = append(encoded, url.QueryEscape(pair[0])+"="+url.QueryEscape(pair[1]))
	}

	return []byte(strings.Join(encoded, "&"))
}

// capabilityPath keeps only the path of a capability URL; scheme and host
// always come from the login URL.
func capabilityPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		return "/"
	}

	return path
}
