// Package config handles loading and validation of the router configuration
// from defaults, an optional YAML file, environment variables and command
// line flags. It covers the listen address, the selection mode with its
// backend pool or default target, forwarding timeouts, health probing,
// metrics and logging.
package config
