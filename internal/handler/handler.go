package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/dev-router/internal/backend"
	"github.com/angeloszaimis/dev-router/internal/forwarder"
	"github.com/angeloszaimis/dev-router/internal/metrics"
	"github.com/angeloszaimis/dev-router/internal/selector"
)

const BackendServerHeader = "X-Backend-Server"

// Forwarder relays a request to a resolved target.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, target backend.Target) forwarder.Outcome
}

// EventEmitter receives metric events without blocking.
type EventEmitter interface {
	Emit(event metrics.MetricEvent)
}

type RouterHandler struct {
	logger        *slog.Logger
	selector      selector.Selector
	routingHeader string
	forwarder     Forwarder
	backends      map[backend.Target]*backend.Backend
	emitter       EventEmitter
}

func (h *RouterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	h.logger.Debug("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host),
		slog.String("user_agent", r.UserAgent()))

	target, fallback := h.choose(r.Header)
	address := target.String()

	h.emitEvent(metrics.MetricEvent{
		Type:   metrics.EventRequestReceived,
		Target: address,
	})

	h.emitEvent(metrics.MetricEvent{
		Type:     metrics.EventTargetSelected,
		Target:   address,
		Fallback: fallback,
	})

	if b, ok := h.backends[target]; ok {
		b.IncrementConn()
		defer b.DecrementConn()
	}

	w.Header().Set(BackendServerHeader, address)

	// Forward panics with http.ErrAbortHandler when a relay is cut after
	// the response headers went out; the placeholder is reported then.
	start := time.Now()
	outcome := forwarder.Outcome{Target: target, Err: http.ErrAbortHandler}
	defer func() {
		if outcome.Duration == 0 {
			outcome.Duration = time.Since(start)
		}
		h.complete(r, clientIP, outcome)
	}()

	outcome = h.forwarder.Forward(w, r, target)
}

// choose selects the target and removes the routing header in every mode.
// fallback reports a header-directed request that got the default target.
func (h *RouterHandler) choose(header http.Header) (backend.Target, bool) {
	defer selector.StripHeader(header, h.routingHeader)

	if resolver, ok := h.selector.(selector.Resolver); ok {
		target, directed := resolver.Resolve(header)
		return target, !directed
	}

	return h.selector.Select(header), false
}

func (h *RouterHandler) complete(r *http.Request, clientIP string, outcome forwarder.Outcome) {
	address := outcome.Target.String()

	if outcome.Failed() {
		h.emitEvent(metrics.MetricEvent{
			Type:   metrics.EventProxyError,
			Target: address,
		})
	}

	h.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Target:     address,
		Duration:   outcome.Duration,
		StatusCode: outcome.StatusCode,
	})

	attrs := []any{
		slog.String("client", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("selector", h.selector.Name()),
		slog.String("backend", address),
		slog.String("request_id", outcome.RequestID),
		slog.Int("status", outcome.StatusCode),
		slog.Duration("duration", outcome.Duration),
	}

	if errors.Is(outcome.Err, http.ErrAbortHandler) {
		h.logger.Warn("Relay aborted", attrs...)
		return
	}

	h.logger.Info("Forwarded request", attrs...)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (h *RouterHandler) emitEvent(event metrics.MetricEvent) {
	if h.emitter == nil {
		return
	}

	h.emitter.Emit(event)
}

// NewRouterHandler builds the handler. routingHeader is removed from every
// request before forwarding (DefaultRoutingHeader when empty). backends are
// the pool members whose connections are tracked; emitter may be nil.
func NewRouterHandler(logger *slog.Logger, sel selector.Selector, routingHeader string, fwd Forwarder, backends []*backend.Backend, emitter EventEmitter) *RouterHandler {
	if routingHeader == "" {
		routingHeader = selector.DefaultRoutingHeader
	}

	byTarget := make(map[backend.Target]*backend.Backend, len(backends))
	for _, b := range backends {
		byTarget[b.Target()] = b
	}

	return &RouterHandler{
		logger:        logger,
		selector:      sel,
		routingHeader: routingHeader,
		forwarder:     fwd,
		backends:      byTarget,
		emitter:       emitter,
	}
}
