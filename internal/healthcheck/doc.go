// Package healthcheck periodically probes pool targets for TCP reachability.
// Results are logged and reported to the metrics collector; they never
// influence target selection.
package healthcheck
