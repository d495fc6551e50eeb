package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/dev-router/internal/backend"
)

const (
	RequestIDHeader = "X-Request-Id"

	DefaultTimeout     = 30 * time.Second
	DefaultDialTimeout = 5 * time.Second
)

// Outcome describes the result of one forwarding attempt.
type Outcome struct {
	Target     backend.Target
	RequestID  string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Failed reports whether the backend could not be reached.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

type errorBody struct {
	Message string `json:"message"`
}

// Options tunes the forwarder. Zero values fall back to the defaults.
type Options struct {
	Timeout     time.Duration
	DialTimeout time.Duration
}

// Forwarder relays requests to backend targets.
type Forwarder struct {
	logger    *slog.Logger
	transport http.RoundTripper
	timeout   time.Duration
}

// New creates a Forwarder with its own transport.
func New(logger *slog.Logger, opts Options) *Forwarder {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
	}

	return &Forwarder{
		logger:    logger,
		transport: transport,
		timeout:   opts.Timeout,
	}
}

// Timeout returns the per-request forwarding deadline.
func (f *Forwarder) Timeout() time.Duration {
	return f.timeout
}

// Forward relays r to target and writes the backend response, or a proxy
// error, to w. The request path and query are preserved verbatim.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, target backend.Target) Outcome {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		r.Header.Set(RequestIDHeader, requestID)
	}

	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()

	outcome := Outcome{
		Target:    target,
		RequestID: requestID,
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target.URL())
			pr.SetXForwarded()
		},
		Transport: f.transport,
		ModifyResponse: func(res *http.Response) error {
			outcome.StatusCode = res.StatusCode
			res.Header.Set(RequestIDHeader, requestID)
			return nil
		},
		ErrorHandler: func(rw http.ResponseWriter, req *http.Request, err error) {
			outcome.Err = err
			outcome.StatusCode = http.StatusInternalServerError
			rw.Header().Set(RequestIDHeader, requestID)
			f.writeProxyError(rw, err)
		},
	}

	start := time.Now()
	proxy.ServeHTTP(w, r.WithContext(ctx))
	outcome.Duration = time.Since(start)

	if outcome.Err != nil {
		f.logger.Warn("Forwarding failed",
			slog.String("request_id", requestID),
			slog.String("backend", target.String()),
			slog.String("path", r.URL.Path),
			slog.Bool("timeout", errors.Is(outcome.Err, context.DeadlineExceeded)),
			slog.String("error", outcome.Err.Error()))
	}

	return outcome
}

func (f *Forwarder) writeProxyError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	body := errorBody{Message: fmt.Sprintf("Proxy error: %s", err.Error())}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		f.logger.Error("failed to write proxy error", slog.String("error", encErr.Error()))
	}
}
