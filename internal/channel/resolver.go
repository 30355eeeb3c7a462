// Package channel maps locators to hub channels and decides which inbound
// messages belong to a channel.
package channel

import (
	"net/url"
	"strings"
)

// Identity is the hub channel a client is scoped to.
type Identity string

const (
	GateIn  Identity = "gate_in"
	GateOut Identity = "gate_out"
	// All is the broadcast identity. The hub serves it on the gate_all channel.
	All Identity = "all"
)

const broadcastSegment = "gate_all"

// Identities lists every known identity.
func Identities() []Identity {
	return []Identity{GateIn, GateOut, All}
}

// IsBroadcast reports whether id receives every gate's traffic.
func (id Identity) IsBroadcast() bool {
	return id == All
}

// Segment returns the hub path segment for id.
func (id Identity) Segment() string {
	if id.IsBroadcast() {
		return broadcastSegment
	}
	return string(id)
}

func (id Identity) String() string {
	return string(id)
}

// Parse maps a name to a known identity, tolerating case and separator
// variants such as "Gate-In" or "gate all".
func Parse(name string) (Identity, bool) {
	switch squash(name) {
	case "gatein":
		return GateIn, true
	case "gateout":
		return GateOut, true
	case "all", "gateall":
		return All, true
	default:
		return "", false
	}
}

// Resolve maps a locator (URL, path, or path with query) to an identity.
// A "gate" query parameter naming a known identity wins; otherwise the host
// and path are searched for a gate marker. Anything else resolves to All.
func Resolve(locator string) Identity {
	rest, _, _ := strings.Cut(locator, "#")
	path, query, _ := strings.Cut(rest, "?")

	if query != "" {
		values, _ := url.ParseQuery(query)
		if id, ok := Parse(values.Get("gate")); ok {
			return id
		}
	}

	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	marker := squash(path)
	switch {
	case strings.Contains(marker, "gatein"):
		return GateIn
	case strings.Contains(marker, "gateout"):
		return GateOut
	default:
		return All
	}
}

// Endpoint returns the hub URL serving id under base, e.g.
// ws://hub:8000/ws/gate_in.
func Endpoint(base string, id Identity) string {
	return strings.TrimRight(base, "/") + "/ws/" + id.Segment()
}

func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case '-', '_', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
