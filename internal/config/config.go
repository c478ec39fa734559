package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

const (
	productionBaseURL = "https://api.value.io"
	stagingBaseURL    = "https://api-staging.value.io"
	apiVersionPath    = "/v1/"
)

// Config holds all application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Gateway     GatewayConfig   `mapstructure:"gateway"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Secrets     SecretsConfig   `mapstructure:"secrets"`
	Cron        CronConfig      `mapstructure:"cron"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP, gRPC health and metrics listener configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	InternalSecret  string        `mapstructure:"internal_secret"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds host store configuration. Driver "memory" keeps every
// record in process and is meant for development.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	URL         string `mapstructure:"url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"name"`
	SSLMode     string `mapstructure:"ssl_mode"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// GatewayConfig is the immutable ValueIO gateway configuration. It is built
// once at start-up and handed to every component that needs it.
type GatewayConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	AccountID          string        `mapstructure:"account_id"`
	WriteToken         string        `mapstructure:"write_token"`
	AdminToken         string        `mapstructure:"admin_token"`
	TestMode           bool          `mapstructure:"test_mode"`
	VaultEnabled       bool          `mapstructure:"vault_enabled"`
	PaymentDestination string        `mapstructure:"payment_destination"`
	Title              string        `mapstructure:"title"`
	Description        string        `mapstructure:"description"`
	Currency           string        `mapstructure:"currency"`
	APIBaseURL         string        `mapstructure:"api_base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxGetRetries      int           `mapstructure:"max_get_retries"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SecretsConfig selects where processor tokens are resolved from when they
// are not given directly. Backend is one of "none", "local", "vault", "aws".
type SecretsConfig struct {
	Backend        string        `mapstructure:"backend"`
	WriteTokenPath string        `mapstructure:"write_token_path"`
	AdminTokenPath string        `mapstructure:"admin_token_path"`
	LocalPath      string        `mapstructure:"local_path"`
	VaultAddress   string        `mapstructure:"vault_address"`
	VaultToken     string        `mapstructure:"vault_token"`
	VaultMount     string        `mapstructure:"vault_mount"`
	AWSRegion      string        `mapstructure:"aws_region"`
	AWSEndpoint    string        `mapstructure:"aws_endpoint"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// CronConfig holds the scheduler endpoint configuration
type CronConfig struct {
	Secret    string `mapstructure:"secret"`
	BatchSize int    `mapstructure:"batch_size"`
}

// RateLimitConfig bounds shopper-facing endpoints per client address
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Load reads configuration from defaults, an optional YAML file and
// VALUEIO_-prefixed environment variables (e.g. VALUEIO_GATEWAY_ACCOUNT_ID).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VALUEIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("server.internal_secret", "")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "valueio_gateway")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("gateway.enabled", true)
	v.SetDefault("gateway.account_id", "")
	v.SetDefault("gateway.write_token", "")
	v.SetDefault("gateway.admin_token", "")
	v.SetDefault("gateway.test_mode", true)
	v.SetDefault("gateway.vault_enabled", false)
	v.SetDefault("gateway.payment_destination", "")
	v.SetDefault("gateway.title", "ValueIO Payment")
	v.SetDefault("gateway.description", "ValueIO Secure Payment")
	v.SetDefault("gateway.currency", "USD")
	v.SetDefault("gateway.api_base_url", "")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.max_get_retries", 2)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.development", false)

	v.SetDefault("secrets.backend", "none")
	v.SetDefault("secrets.write_token_path", "")
	v.SetDefault("secrets.admin_token_path", "")
	v.SetDefault("secrets.local_path", "./secrets")
	v.SetDefault("secrets.vault_address", "")
	v.SetDefault("secrets.vault_token", "")
	v.SetDefault("secrets.vault_mount", "secret")
	v.SetDefault("secrets.aws_region", "us-east-1")
	v.SetDefault("secrets.aws_endpoint", "")
	v.SetDefault("secrets.cache_ttl", 5*time.Minute)

	v.SetDefault("cron.secret", "")
	v.SetDefault("cron.batch_size", 100)

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
}

// Validate checks settings the process cannot start without. Gateway
// credentials are checked separately by GatewayConfig.Check so that an
// unconfigured gateway only disables checkout instead of the whole service.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" && c.Database.Password == "" {
			return errors.New("database.password or database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Secrets.Backend {
	case "none", "local", "vault", "aws":
	default:
		return fmt.Errorf("unsupported secrets backend: %s", c.Secrets.Backend)
	}

	if c.Gateway.MaxGetRetries < 0 {
		return errors.New("gateway.max_get_retries must not be negative")
	}
	if c.Cron.BatchSize < 1 || c.Cron.BatchSize > 1000 {
		return errors.New("cron.batch_size must be between 1 and 1000")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// BaseURL returns the processor host for the configured mode
func (g GatewayConfig) BaseURL() string {
	if g.APIBaseURL != "" {
		return strings.TrimRight(g.APIBaseURL, "/")
	}
	if g.TestMode {
		return stagingBaseURL
	}
	return productionBaseURL
}

// APIURL returns the versioned REST root every resource is relative to
func (g GatewayConfig) APIURL() string {
	return g.BaseURL() + apiVersionPath
}

// Check reports the first missing credential as a CONFIGURATION_ERROR
func (g GatewayConfig) Check() error {
	if g.AccountID == "" {
		return domain.NewConfigurationError("Please enter your ValueIO account name")
	}
	if g.WriteToken == "" {
		return domain.NewConfigurationError("Please enter your ValueIO write only token")
	}
	if g.AdminToken == "" {
		return domain.NewConfigurationError("Please enter your ValueIO admin token")
	}
	return nil
}

// IsAvailable reports whether the gateway may be offered at checkout
func (g GatewayConfig) IsAvailable() bool {
	return g.Enabled && strings.EqualFold(g.Currency, "USD")
}
