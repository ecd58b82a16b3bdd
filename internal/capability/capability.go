// Package capability stores the capability URLs a RETS server advertises on
// login and resolves them for later requests.
package capability

import (
	"bytes"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/antchfx/xmlquery"
)

// responsePath locates the key-value block of a login reply.
const responsePath = "//RETS/RETS-RESPONSE"

// Map holds the capabilities of one authenticated session. The zero value
// is an unloaded, empty map.
type Map struct {
	entries map[string]string
	loaded  bool
}

// New returns an unloaded map.
func New() *Map {
	return &Map{}
}

// Loaded reports whether capabilities have been stored since the last Reset.
func (m *Map) Loaded() bool {
	return m.loaded
}

// Replace stores entries as the complete capability set.
func (m *Map) Replace(entries map[string]string) {
	m.entries = maps.Clone(entries)
	if m.entries == nil {
		m.entries = make(map[string]string)
	}

	m.loaded = true
}

// Reset forgets every capability.
func (m *Map) Reset() {
	m.entries = nil
	m.loaded = false
}

// Snapshot returns a copy of the stored capabilities.
func (m *Map) Snapshot() rets.Capabilities {
	return maps.Clone(rets.Capabilities(m.entries))
}

// Lookup returns the raw URL stored for name.
func (m *Map) Lookup(name string) (string, bool) {
	value, ok := m.entries[name]

	return value, ok
}

// Resolve parses the URL stored for name. Only its path is meant to be used;
// scheme and host stay those of the login URL.
func (m *Map) Resolve(name string) (*url.URL, error) {
	raw, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rets.ErrCapabilityNotFound, name)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, &rets.MalformedResponseError{Capability: name, URL: raw, Err: err}
	}

	return parsed, nil
}

// Extract reads the capability block of a login reply body.
func Extract(body []byte) (map[string]string, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}

	return ExtractNode(doc), nil
}

// ExtractNode reads the capability block of an already parsed login reply.
// A reply without a RETS-RESPONSE element yields an empty map.
func ExtractNode(doc *xmlquery.Node) map[string]string {
	node := xmlquery.FindOne(doc, responsePath)
	if node == nil {
		return map[string]string{}
	}

	return ParseKeyValues(node.InnerText())
}

// ParseKeyValues splits text into KEY=VALUE lines on the first '='.
//
// Some servers soft-wrap long values. A line without '=' is appended to the
// previous key's value with nothing in between, so
//
//	GetMetadata=/rets/meta
//	data
//
// yields GetMetadata=/rets/metadata.
func ParseKeyValues(text string) map[string]string {
	entries := make(map[string]string)
	previous := ""

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			if previous != "" {
				entries[previous] += line
			}

			continue
		}

		key = strings.TrimSpace(key)
		entries[key] = strings.TrimSpace(value)
		previous = key
	}

	return entries
}
