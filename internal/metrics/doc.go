// Package metrics provides real-time metrics collection for the router.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Request counts per target
//   - Target selection frequencies
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Proxy errors (unreachable or timed out targets)
//   - Health status reported by the pool prober
//
// The collector runs in a dedicated goroutine and processes events without blocking
// the request path. Emit drops events when the buffer is full.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Target:     "localhost:5001",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("round-robin")
package metrics
