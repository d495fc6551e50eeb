package config

import (
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	ModeRoundRobin     = "round-robin"
	ModeHeaderDirected = "header"
)

var pathPrefixPattern = regexp.MustCompile(`^/([^/]+/)*$`)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type RoutingConfig struct {
	Mode        string `mapstructure:"mode"`
	Host        string `mapstructure:"host"`
	Ports       []int  `mapstructure:"ports"`
	DefaultPort int    `mapstructure:"default_port"`
	Header      string `mapstructure:"header"`
	PathPrefix  string `mapstructure:"path_prefix"`
}

type ProxyConfig struct {
	Timeout     string `mapstructure:"timeout"`
	DialTimeout string `mapstructure:"dial_timeout"`
}

type HealthCheckConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	Timeout  string `mapstructure:"timeout"`
}

type MetricsConfig struct {
	BufferSize int    `mapstructure:"buffer_size"`
	Path       string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Routing     RoutingConfig     `mapstructure:"routing"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("routing.mode", ModeRoundRobin)
	v.SetDefault("routing.host", "localhost")
	v.SetDefault("routing.ports", []int{5000, 5001, 5002, 5003, 5004, 5005})
	v.SetDefault("routing.default_port", 5000)
	v.SetDefault("routing.header", "X-Target-Port")
	v.SetDefault("routing.path_prefix", "/api/")
	v.SetDefault("proxy.timeout", "30s")
	v.SetDefault("proxy.dial_timeout", "5s")
	v.SetDefault("health_check.enabled", true)
	v.SetDefault("health_check.interval", "5s")
	v.SetDefault("health_check.timeout", "1s")
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("metrics.path", "/_router/metrics")
	v.SetDefault("logging.level", LogLevelInfo)
}

// Load reads the configuration into a validated Config. When configFile is
// empty, config.yaml is looked up in ./config and the working directory and
// may be absent. Environment variables such as ROUTING_MODE override file
// values; flags bound to v override both.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// ProxyTimeout returns the parsed forwarding timeout. Call after Validate.
func (c *Config) ProxyTimeout() time.Duration {
	return parseDuration(c.Proxy.Timeout)
}

// DialTimeout returns the parsed backend dial timeout. Call after Validate.
func (c *Config) DialTimeout() time.Duration {
	return parseDuration(c.Proxy.DialTimeout)
}

// HealthInterval returns the parsed probe interval. Call after Validate.
func (c *Config) HealthInterval() time.Duration {
	return parseDuration(c.HealthCheck.Interval)
}

// HealthTimeout returns the parsed probe dial timeout. Call after Validate.
func (c *Config) HealthTimeout() time.Duration {
	return parseDuration(c.HealthCheck.Timeout)
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Routing,
			validation.Required,
			validation.By(validateRouting),
		),
		validation.Field(&c.Proxy,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProxyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProxyConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Timeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&pc.DialTimeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.When(hc.Enabled, validation.Required, validation.By(validatePositiveDuration)),
					),
					validation.Field(&hc.Timeout,
						validation.When(hc.Enabled, validation.Required, validation.By(validatePositiveDuration)),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&mc.Path,
						validation.Required,
						validation.Match(regexp.MustCompile(`^/`)),
					),
				)
			}),
		),
	)
}

func validateRouting(value interface{}) error {
	rc, ok := value.(RoutingConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RoutingConfig")
	}

	return validation.ValidateStruct(&rc,
		validation.Field(&rc.Mode,
			validation.Required,
			validation.In(ModeRoundRobin, ModeHeaderDirected),
		),
		validation.Field(&rc.Host,
			validation.Required,
			is.Host,
		),
		validation.Field(&rc.Ports,
			validation.When(rc.Mode == ModeRoundRobin, validation.Required, validation.Length(1, 0)),
			validation.Each(validation.By(validatePort)),
		),
		validation.Field(&rc.DefaultPort,
			validation.When(rc.Mode == ModeHeaderDirected, validation.Required),
			validation.When(rc.DefaultPort != 0 || rc.Mode == ModeHeaderDirected, validation.By(validatePort)),
		),
		validation.Field(&rc.Header,
			validation.When(rc.Mode == ModeHeaderDirected, validation.Required),
			validation.Match(regexp.MustCompile(`^[A-Za-z0-9-]*$`)),
		),
		validation.Field(&rc.PathPrefix,
			validation.Required,
			validation.Match(pathPrefixPattern).Error("must start and end with /"),
		),
	)
}

func validatePort(value interface{}) error {
	port, ok := value.(int)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an integer")
	}

	if port < 1 || port > 65535 {
		return validation.NewError("validation_invalid_port", "must be between 1 and 65535")
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be greater than zero")
	}

	return nil
}

func parseDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
