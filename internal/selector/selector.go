package selector

import (
	"net/http"
	"strings"

	"github.com/angeloszaimis/dev-router/internal/backend"
)

const (
	ModeRoundRobin     = "round-robin"
	ModeHeaderDirected = "header"
)

// Selector picks the target for a request. Implementations may consume
// control headers from header; whatever remains is forwarded to the backend.
type Selector interface {
	Select(header http.Header) backend.Target
	Name() string
}

// Resolver is implemented by selectors that can tell a target the request
// asked for from a fallback.
type Resolver interface {
	Resolve(header http.Header) (target backend.Target, directed bool)
}

// StripHeader removes every value of name from header whatever the key's
// casing. Hand-built header maps are not always canonical.
func StripHeader(header http.Header, name string) {
	for key := range header {
		if strings.EqualFold(key, name) {
			delete(header, key)
		}
	}
}
