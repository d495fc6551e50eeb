package backend

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// Target is a concrete backend address a request can be forwarded to.
type Target struct {
	Host string
	Port int
}

// NewTarget returns the target for host and port.
func NewTarget(host string, port int) Target {
	return Target{Host: host, Port: port}
}

// String returns the target in host:port form.
func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// URL returns the plain HTTP base URL of the target.
func (t Target) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: t.String()}
}

// ParsePort parses a decimal port number in [MinPort, MaxPort].
// Surrounding whitespace is ignored; signs, fractions and hex are rejected.
func ParsePort(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, "+-") {
		return 0, false
	}

	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}

	if port < MinPort || port > MaxPort {
		return 0, false
	}

	return port, true
}
