package backend

import (
	"sync"
)

// Backend is a member of the backend pool with health status and
// connection tracking. Health is observational and never used for selection.
type Backend struct {
	target            Target
	mutex             sync.Mutex
	isHealthy         bool
	activeConnections int
}

// Target returns the backend address.
func (b *Backend) Target() Target {
	return b.target
}

// IncrementConn increments the active connection count.
func (b *Backend) IncrementConn() {
	b.mutex.Lock()
	b.activeConnections++
	b.mutex.Unlock()
}

// DecrementConn decrements the active connection count.
func (b *Backend) DecrementConn() {
	b.mutex.Lock()
	if b.activeConnections > 0 {
		b.activeConnections--
	}
	b.mutex.Unlock()
}

// ActiveConnections returns the current number of active connections.
func (b *Backend) ActiveConnections() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.activeConnections
}

// IsHealthy returns true if the last probe reached the backend.
func (b *Backend) IsHealthy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.isHealthy
}

// SetHealthy updates the backend's health status.
// Returns true if the status changed, false if it was already in that state.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.isHealthy == healthy {
		return false
	}

	b.isHealthy = healthy
	return true
}

// New creates a Backend for target.
// The backend starts unhealthy until a probe succeeds.
func New(target Target) *Backend {
	return &Backend{
		target: target,
	}
}

// Pool builds one Backend per target, preserving order.
func Pool(targets []Target) []*Backend {
	backends := make([]*Backend, 0, len(targets))
	for _, t := range targets {
		backends = append(backends, New(t))
	}
	return backends
}
