// Package backend describes the backend service instances the router
// forwards to: a Target is a concrete host:port address, a Backend is a pool
// member with health status and active connection tracking.
package backend
