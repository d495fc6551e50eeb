package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/dev-router/config"
	"github.com/angeloszaimis/dev-router/internal/backend"
	"github.com/angeloszaimis/dev-router/internal/forwarder"
	"github.com/angeloszaimis/dev-router/internal/handler"
	"github.com/angeloszaimis/dev-router/internal/healthcheck"
	"github.com/angeloszaimis/dev-router/internal/httpserver"
	"github.com/angeloszaimis/dev-router/internal/metrics"
	"github.com/angeloszaimis/dev-router/internal/selector"
	"github.com/angeloszaimis/dev-router/pkg/logger"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "dev-router",
		Short: "Development request router for API traffic",
		Long: `dev-router forwards requests under the API prefix to one backend
instance per request, either round-robin across a fixed pool of ports or to
the port named in a routing header.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a config file (default ./config/config.yaml or ./config.yaml)")
	cmd.Flags().String("address", "", "listen address, e.g. :8080")
	cmd.Flags().String("mode", "", "selection mode: round-robin or header")
	cmd.Flags().String("host", "", "backend host")
	cmd.Flags().IntSlice("ports", nil, "backend pool ports for round-robin mode")
	cmd.Flags().Int("default-port", 0, "fallback port for header mode")
	cmd.Flags().String("header", "", "routing header for header mode")
	cmd.Flags().String("log-level", "", "log level: debug, info, warn, error")

	bindFlags(v, cmd.Flags(), map[string]string{
		"address":      "server.address",
		"mode":         "routing.mode",
		"host":         "routing.host",
		"ports":        "routing.ports",
		"default-port": "routing.default_port",
		"header":       "routing.header",
		"log-level":    "logging.level",
	})

	return cmd
}

// bindFlags binds each flag to its config key. Only flags that were set
// override file and environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %q: %v", name, err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	pool, err := initializePool(cfg)
	if err != nil {
		log.Error("Failed to initialize backend pool", slog.Any("err", err))
		return err
	}

	sel, err := createSelector(log, cfg, pool)
	if err != nil {
		log.Error("Failed to create selector",
			slog.String("mode", cfg.Routing.Mode),
			slog.Any("err", err))
		return err
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	backends := backend.Pool(pool)
	if cfg.HealthCheck.Enabled {
		for _, b := range backends {
			go healthcheck.HealthCheck(ctx, b, cfg.HealthInterval(), cfg.HealthTimeout(), collector, log)
		}
	}

	fwd := forwarder.New(log, forwarder.Options{
		Timeout:     cfg.ProxyTimeout(),
		DialTimeout: cfg.DialTimeout(),
	})

	routerHandler := handler.NewRouterHandler(log, sel, cfg.Routing.Header, fwd, backends, collector)

	mux := setupRouter(routerHandler, collector, cfg.Routing.PathPrefix, cfg.Metrics.Path, sel.Name())

	srv, err := httpserver.New(cfg.Server.Address, mux, cfg.ProxyTimeout())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Router started",
		slog.String("address", cfg.Server.Address),
		slog.String("mode", sel.Name()),
		slog.String("prefix", cfg.Routing.PathPrefix),
		slog.Int("pool_size", len(pool)))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting router", slog.Any("err", err))
			return err
		}
	}

	return nil
}

// initializePool turns the configured ports into targets on the routing host.
// Round-robin mode requires at least one port.
func initializePool(cfg *config.Config) ([]backend.Target, error) {
	pool := make([]backend.Target, 0, len(cfg.Routing.Ports))

	for _, port := range cfg.Routing.Ports {
		if port < backend.MinPort || port > backend.MaxPort {
			return nil, fmt.Errorf("invalid backend port %d", port)
		}
		pool = append(pool, backend.NewTarget(cfg.Routing.Host, port))
	}

	if len(pool) == 0 && cfg.Routing.Mode == config.ModeRoundRobin {
		return nil, selector.ErrEmptyPool
	}

	return pool, nil
}

func createSelector(logger *slog.Logger, cfg *config.Config, pool []backend.Target) (selector.Selector, error) {
	switch cfg.Routing.Mode {
	case config.ModeRoundRobin:
		return selector.NewRoundRobin(pool)
	case config.ModeHeaderDirected:
		def := backend.NewTarget(cfg.Routing.Host, cfg.Routing.DefaultPort)
		return selector.NewHeaderDirected(cfg.Routing.Header, def), nil
	default:
		logger.Warn("Unknown mode, defaulting to round-robin", slog.String("requested", cfg.Routing.Mode))
		return selector.NewRoundRobin(pool)
	}
}
