// Package cookies accumulates the cookies a RETS server sets across a session
// and serialises them into a single Cookie header.
package cookies

import "strings"

// Jar maps cookie names to values. Names keep their first-insertion order
// and a later value replaces the earlier one in place. A Jar is not safe for
// concurrent use.
type Jar struct {
	names  []string
	values map[string]string
}

// New returns an empty jar.
func New() *Jar {
	return &Jar{values: make(map[string]string)}
}

// Absorb records the leading name=value pair of every Set-Cookie header.
// Attributes such as Path or Expires are ignored. It reports whether any
// cookie was added or changed.
func (j *Jar) Absorb(setCookieHeaders []string) bool {
	changed := false

	for _, header := range setCookieHeaders {
		name, value, ok := parsePair(header)
		if !ok {
			continue
		}

		if j.set(name, value) {
			changed = true
		}
	}

	return changed
}

// Restore absorbs a previously serialised Cookie header ("a=1; b=2").
func (j *Jar) Restore(serialized string) {
	for _, pair := range strings.Split(serialized, ";") {
		name, value, ok := parsePair(pair)
		if ok {
			j.set(name, value)
		}
	}
}

// Serialize joins the cookies as "k=v; k2=v2". The boolean is false when the
// jar is empty and no Cookie header should be sent.
func (j *Jar) Serialize() (string, bool) {
	if len(j.names) == 0 {
		return "", false
	}

	pairs := make([]string, 0, len(j.names))
	for _, name := range j.names {
		pairs = append(pairs, name+"="+j.values[name])
	}

	return strings.Join(pairs, "; "), true
}

// Get returns the value stored for name.
func (j *Jar) Get(name string) (string, bool) {
	value, ok := j.values[name]

	return value, ok
}

// Len returns the number of cookies held.
func (j *Jar) Len() int {
	return len(j.names)
}

// Reset drops every cookie.
func (j *Jar) Reset() {
	j.names = nil
	j.values = make(map[string]string)
}

func (j *Jar) set(name, value string) bool {
	if j.values == nil {
		j.values = make(map[string]string)
	}

	previous, exists := j.values[name]
	if !exists {
		j.names = append(j.names, name)
	} else if previous == value {
		return false
	}

	j.values[name] = value

	return true
}

// parsePair extracts name=value up to the first ';'.
func parsePair(header string) (string, string, bool) {
	token, _, _ := strings.Cut(header, ";")

	name, value, found := strings.Cut(strings.TrimSpace(token), "=")
	if !found {
		return "", "", false
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}

	return name, strings.TrimSpace(value), true
}
