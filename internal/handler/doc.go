// Package handler implements the HTTP handler serving the API prefix.
// It resolves a target through the configured selector and hands the request
// to the forwarder.
package handler
