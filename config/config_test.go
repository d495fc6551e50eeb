package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/dev-router/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
	})

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		Context("with a header-directed config file", func() {
			BeforeEach(func() {
				writeConfig(`
server:
  address: "127.0.0.1:8081"
  environment: "dev"

routing:
  mode: "header"
  host: "127.0.0.1"
  default_port: 5002
  header: "x-target-port"

proxy:
  timeout: "10s"

logging:
  level: "debug"
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load(viper.New(), "")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal("127.0.0.1:8081"))
				Expect(cfg.Routing.Mode).To(Equal(config.ModeHeaderDirected))
				Expect(cfg.Routing.Host).To(Equal("127.0.0.1"))
				Expect(cfg.Routing.DefaultPort).To(Equal(5002))
				Expect(cfg.Routing.Header).To(Equal("x-target-port"))
				Expect(cfg.ProxyTimeout()).To(Equal(10 * time.Second))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
			})

			It("should keep defaults for keys the file omits", func() {
				cfg, err := config.Load(viper.New(), "")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Routing.PathPrefix).To(Equal("/api/"))
				Expect(cfg.DialTimeout()).To(Equal(5 * time.Second))
			})
		})

		Context("with an explicit config file path", func() {
			It("should read the given file", func() {
				path := filepath.Join(tempDir, "router.yaml")
				Expect(os.WriteFile(path, []byte("routing:\n  ports: [7000, 7001]\n"), 0644)).To(Succeed())

				cfg, err := config.Load(viper.New(), path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Routing.Ports).To(Equal([]int{7000, 7001}))
			})

			It("should fail when the file does not exist", func() {
				_, err := config.Load(viper.New(), filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("without a config file", func() {
			It("should use defaults", func() {
				cfg, err := config.Load(viper.New(), "")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8080"))
				Expect(cfg.Routing.Mode).To(Equal(config.ModeRoundRobin))
				Expect(cfg.Routing.Ports).To(Equal([]int{5000, 5001, 5002, 5003, 5004, 5005}))
				Expect(cfg.Routing.DefaultPort).To(Equal(5000))
				Expect(cfg.Routing.Header).To(Equal("X-Target-Port"))
				Expect(cfg.HealthCheck.Enabled).To(BeTrue())
				Expect(cfg.HealthInterval()).To(Equal(5 * time.Second))
				Expect(cfg.HealthTimeout()).To(Equal(time.Second))
				Expect(cfg.Metrics.Path).To(Equal("/_router/metrics"))
			})

			It("should let environment variables override defaults", func() {
				GinkgoT().Setenv("ROUTING_MODE", "header")
				GinkgoT().Setenv("ROUTING_DEFAULT_PORT", "5004")

				cfg, err := config.Load(viper.New(), "")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Routing.Mode).To(Equal(config.ModeHeaderDirected))
				Expect(cfg.Routing.DefaultPort).To(Equal(5004))
			})

			It("should refuse an empty round-robin pool", func() {
				v := viper.New()
				v.Set("routing.ports", []int{})

				cfg, err := config.Load(v, "")
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server:      config.ServerConfig{Address: ":8080", Environment: config.EnvDev},
				Routing:     config.RoutingConfig{Mode: config.ModeRoundRobin, Host: "localhost", Ports: []int{5000, 5001}, DefaultPort: 5000, Header: "X-Target-Port", PathPrefix: "/api/"},
				Proxy:       config.ProxyConfig{Timeout: "30s", DialTimeout: "5s"},
				HealthCheck: config.HealthCheckConfig{Enabled: true, Interval: "5s", Timeout: "1s"},
				Metrics:     config.MetricsConfig{BufferSize: 100, Path: "/_router/metrics"},
				Logging:     config.LoggingConfig{Level: config.LogLevelInfo},
			}
		})

		It("should accept a complete configuration", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		DescribeTable("rejected configurations",
			func(mutate func(c *config.Config)) {
				mutate(cfg)
				Expect(cfg.Validate()).NotTo(Succeed())
			},
			Entry("unknown mode", func(c *config.Config) { c.Routing.Mode = "random" }),
			Entry("empty pool", func(c *config.Config) { c.Routing.Ports = nil }),
			Entry("zero port in pool", func(c *config.Config) { c.Routing.Ports = []int{5000, 0} }),
			Entry("port above range", func(c *config.Config) { c.Routing.Ports = []int{70000} }),
			Entry("header mode without default port", func(c *config.Config) {
				c.Routing.Mode = config.ModeHeaderDirected
				c.Routing.DefaultPort = 0
			}),
			Entry("invalid header name", func(c *config.Config) { c.Routing.Header = "X Target" }),
			Entry("prefix without trailing slash", func(c *config.Config) { c.Routing.PathPrefix = "/api" }),
			Entry("invalid proxy timeout", func(c *config.Config) { c.Proxy.Timeout = "soon" }),
			Entry("negative proxy timeout", func(c *config.Config) { c.Proxy.Timeout = "-1s" }),
			Entry("invalid health interval", func(c *config.Config) { c.HealthCheck.Interval = "often" }),
			Entry("unknown environment", func(c *config.Config) { c.Server.Environment = "qa" }),
			Entry("invalid listen address", func(c *config.Config) { c.Server.Address = "invalid:host:port" }),
			Entry("unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }),
		)

		It("should allow an empty pool in header mode", func() {
			cfg.Routing.Mode = config.ModeHeaderDirected
			cfg.Routing.Ports = nil
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should skip health durations when probing is disabled", func() {
			cfg.HealthCheck = config.HealthCheckConfig{Enabled: false}
			Expect(cfg.Validate()).To(Succeed())
		})
	})
})
