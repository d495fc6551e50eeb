// Backends starts a pool of demo API backends in one process, one listener
// per port, for trying out the router locally.
//
// Usage:
//
//	go run ./scripts --ports 5000,5001,5002,5003,5004,5005
//
// Every backend answers /api/* with a JSON document naming the port that
// served the request, the path and the headers it received, and /health
// with "ok".
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/angeloszaimis/dev-router/pkg/logger"
)

// EchoResponse describes how a demo backend saw the request.
type EchoResponse struct {
	ID      string              `json:"id"`
	Port    int                 `json:"port"`
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   string              `json:"query,omitempty"`
	Headers map[string][]string `json:"headers"`
}

func main() {
	ports := pflag.IntSlice("ports", []int{5000, 5001, 5002, 5003, 5004, 5005}, "ports to listen on")
	host := pflag.String("host", "127.0.0.1", "host to bind")
	pflag.Parse()

	log := logger.New("info", false, "dev")

	if err := validatePorts(*ports); err != nil {
		log.Error("invalid ports", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	servers := make([]*http.Server, 0, len(*ports))

	for _, port := range *ports {
		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", *host, port),
			Handler:           newMux(port, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		servers = append(servers, srv)

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("starting backend", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("backend failed", slog.String("addr", srv.Addr), slog.Any("err", err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down all backends")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
	wg.Wait()
}

func newMux(port int, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		resp := EchoResponse{
			ID:      uuid.NewString(),
			Port:    port,
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: r.Header,
		}

		log.Info("request",
			slog.Int("port", port),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

func validatePorts(ports []int) error {
	if len(ports) == 0 {
		return errors.New("no ports given")
	}

	for _, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
	}

	return nil
}
