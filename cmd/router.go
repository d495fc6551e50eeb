package main

import (
	"net/http"
	"strings"

	"github.com/angeloszaimis/dev-router/internal/handler"
	"github.com/angeloszaimis/dev-router/internal/metrics"
)

// apiRouter hands every request below prefix to api untouched and the rest
// to the mux. ServeMux cleans paths and redirects, which would change what
// the backend receives.
type apiRouter struct {
	prefix string
	api    http.Handler
	mux    *http.ServeMux
}

func (a *apiRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.matches(r.URL.Path) {
		a.api.ServeHTTP(w, r)
		return
	}

	a.mux.ServeHTTP(w, r)
}

func (a *apiRouter) matches(path string) bool {
	return path == a.prefix || strings.HasPrefix(path, a.prefix+"/")
}

// setupRouter mounts the router handler on the API prefix and the metrics
// snapshot on metricsPath. Everything else is answered with 404.
func setupRouter(routerHandler *handler.RouterHandler, metricsCollector *metrics.Collector, prefix, metricsPath, mode string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+metricsPath, metricsCollector.Handler(mode))

	return &apiRouter{
		prefix: strings.TrimSuffix(prefix, "/"),
		api:    routerHandler,
		mux:    mux,
	}
}
