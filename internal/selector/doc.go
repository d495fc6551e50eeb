// Package selector maps an inbound request to the backend target it is
// forwarded to. Two policies are implemented:
//
//   - Round Robin: cycles through a fixed, ordered pool of targets
//   - Header Directed: honours a port carried in a routing header and falls
//     back to a default target when the header is missing or malformed
//
// Selectors never fail at request time. The round-robin cursor is the only
// mutable state and is owned by the selector instance.
package selector
