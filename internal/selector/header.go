package selector

import (
	"net/http"
	"strings"

	"github.com/angeloszaimis/dev-router/internal/backend"
)

const DefaultRoutingHeader = "X-Target-Port"

// HeaderDirected routes to the port named in a routing header on the
// default host. A missing or malformed header selects the default target.
type HeaderDirected struct {
	header        string
	defaultTarget backend.Target
}

// NewHeaderDirected returns a selector reading header (DefaultRoutingHeader
// when empty) and falling back to defaultTarget.
func NewHeaderDirected(header string, defaultTarget backend.Target) *HeaderDirected {
	if header == "" {
		header = DefaultRoutingHeader
	}

	return &HeaderDirected{
		header:        http.CanonicalHeaderKey(header),
		defaultTarget: defaultTarget,
	}
}

// Select resolves the target and strips the routing header from header,
// whichever branch is taken.
func (h *HeaderDirected) Select(header http.Header) backend.Target {
	target, _ := h.Resolve(header)
	return target
}

// Resolve is Select that also reports whether the header named a valid
// port. directed is false when the default target was used.
func (h *HeaderDirected) Resolve(header http.Header) (backend.Target, bool) {
	defer h.Strip(header)

	value, found := h.lookup(header)
	if !found {
		return h.defaultTarget, false
	}

	port, ok := backend.ParsePort(value)
	if !ok {
		return h.defaultTarget, false
	}

	return backend.NewTarget(h.defaultTarget.Host, port), true
}

// Strip removes every value of the routing header, including keys that
// were set without canonicalization.
func (h *HeaderDirected) Strip(header http.Header) {
	StripHeader(header, h.header)
}

// Header returns the canonical routing header name.
func (h *HeaderDirected) Header() string {
	return h.header
}

// DefaultTarget returns the fallback target.
func (h *HeaderDirected) DefaultTarget() backend.Target {
	return h.defaultTarget
}

func (h *HeaderDirected) Name() string {
	return ModeHeaderDirected
}

func (h *HeaderDirected) lookup(header http.Header) (string, bool) {
	if values, ok := header[h.header]; ok && len(values) > 0 {
		return values[0], true
	}

	for key, values := range header {
		if strings.EqualFold(key, h.header) && len(values) > 0 {
			return values[0], true
		}
	}

	return "", false
}
