package rets

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// Session is a restorable snapshot of an authenticated client.
type Session struct {
	Authorization string            `json:"authorization,omitempty" yaml:"authorization,omitempty"`
	Capabilities  map[string]string `json:"capabilities,omitempty"  yaml:"capabilities,omitempty"`
	Cookies       string            `json:"cookies,omitempty"       yaml:"cookies,omitempty"`
}

// IsZero reports whether the session carries no state at all.
func (s Session) IsZero() bool {
	return s.Authorization == "" && len(s.Capabilities) == 0 && s.Cookies == ""
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	clone := s
	if s.Capabilities != nil {
		clone.Capabilities = maps.Clone(s.Capabilities)
	}

	return clone
}

// Capabilities maps capability names (Search, GetMetadata, ...) to the URLs
// the server advertised during login.
type Capabilities map[string]string

// MetadataType is one of the metadata kinds a RETS server can return.
type MetadataType string

const (
	MetadataSystem     MetadataType = "SYSTEM"
	MetadataResource   MetadataType = "RESOURCE"
	MetadataClass      MetadataType = "CLASS"
	MetadataTable      MetadataType = "TABLE"
	MetadataLookup     MetadataType = "LOOKUP"
	MetadataLookupType MetadataType = "LOOKUP_TYPE"
	MetadataObject     MetadataType = "OBJECT"
)

// MetadataTypes lists every metadata type in request order.
func MetadataTypes() []MetadataType {
	return []MetadataType{
		MetadataSystem,
		MetadataResource,
		MetadataClass,
		MetadataTable,
		MetadataLookup,
		MetadataLookupType,
		MetadataObject,
	}
}

// ParseMetadataType matches name case-insensitively against the known types.
// A "METADATA-" prefix is accepted.
func ParseMetadataType(name string) (MetadataType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.TrimPrefix(normalized, "METADATA-")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	for _, kind := range MetadataTypes() {
		if string(kind) == normalized {
			return kind, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMetadataType, name)
}

// FormValue is the Type parameter sent to the GetMetadata capability.
func (t MetadataType) FormValue() string {
	return "METADATA-" + string(t)
}

// Key is the lower-case name used when collecting every metadata type.
func (t MetadataType) Key() string {
	return strings.ToLower(string(t))
}

// Response is the result of a raw protocol request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// SessionStore persists sessions between client lifetimes.
type SessionStore interface {
	// Load returns ErrSessionNotFound when nothing is stored under key.
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, session Session) error
	Delete(ctx context.Context, key string) error
	Close() error
}
