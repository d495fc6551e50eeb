package healthcheck

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/angeloszaimis/dev-router/internal/backend"
	"github.com/angeloszaimis/dev-router/internal/metrics"
)

// Reporter receives health transitions.
type Reporter interface {
	Emit(event metrics.MetricEvent)
}

// Probe dials the backend once and updates its health status.
// Returns true if the status changed.
func Probe(ctx context.Context, b *backend.Backend, timeout time.Duration) (changed bool) {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", b.Target().String())
	if err != nil {
		return b.SetHealthy(false)
	}
	conn.Close()

	return b.SetHealthy(true)
}

// HealthCheck probes b immediately and then every interval until ctx is done.
// Status changes are logged and, when reporter is non-nil, emitted as
// health_changed events.
func HealthCheck(
	ctx context.Context,
	b *backend.Backend,
	interval time.Duration,
	timeout time.Duration,
	reporter Reporter,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func(initial bool) {
		changed := Probe(ctx, b, timeout)
		if ctx.Err() != nil {
			return
		}
		if !changed && !initial {
			return
		}

		healthy := b.IsHealthy()
		if reporter != nil {
			reporter.Emit(metrics.MetricEvent{
				Type:      metrics.EventHealthChanged,
				Timestamp: time.Now(),
				Target:    b.Target().String(),
				Healthy:   healthy,
			})
		}

		if healthy {
			logger.Info("Target is up", slog.String("target", b.Target().String()))
		} else {
			logger.Warn("Target is down", slog.String("target", b.Target().String()))
		}
	}

	check(true)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("target", b.Target().String()))
			return

		case <-ticker.C:
			check(false)
		}
	}
}
