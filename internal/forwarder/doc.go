// Package forwarder relays a single request to a resolved backend target and
// copies the response back to the caller. Each request gets exactly one
// attempt under a timeout; transport failures are reported to the caller as
// a JSON "Proxy error" response with status 500.
package forwarder
