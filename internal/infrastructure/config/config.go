package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Pricing       PricingConfig       `mapstructure:"pricing"`
	FX            FXConfig            `mapstructure:"fx"`
	Poller        PollerConfig        `mapstructure:"poller"`
	Gateways      GatewaysConfig      `mapstructure:"gateways"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// PricingConfig is the fee schedule plus the net obligation per installment
// part. Percentages are fractions: 0.04 means 4%.
type PricingConfig struct {
	CardFeePct        float64 `mapstructure:"card_fee_pct"`
	CardFeeFixedCents int64   `mapstructure:"card_fee_fixed_cents"`
	FXMargin          float64 `mapstructure:"fx_margin"`
	PixFeePct         float64 `mapstructure:"pix_fee_pct"`
	NetPartCents      int64   `mapstructure:"net_part_cents"`
	ZelleRecipient    string  `mapstructure:"zelle_recipient"`
}

type FXConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	FallbackRate float64       `mapstructure:"fallback_rate"`
	MaxAttempts  uint          `mapstructure:"max_attempts"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

type PollerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	SoftRetries uint          `mapstructure:"soft_retries"`
	TrackerTTL  time.Duration `mapstructure:"tracker_ttl"`
}

type GatewaysConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	UseMocks   bool          `mapstructure:"use_mocks"`
	StripeCard GatewayConfig `mapstructure:"stripe_card"`
	StripePix  GatewayConfig `mapstructure:"stripe_pix"`
	Parcelow   GatewayConfig `mapstructure:"parcelow"`
}

type GatewayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type WorkerConfig struct {
	BatchSize      int64         `mapstructure:"batch_size"`
	BlockDuration  time.Duration `mapstructure:"block_duration"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	ConsumerGroup  string        `mapstructure:"consumer_group"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	ReclaimMinIdle time.Duration `mapstructure:"reclaim_min_idle"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("LEADPAY")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/leadpay")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Pricing.NetPartCents <= 0 {
		errs = append(errs, fmt.Errorf("pricing.net_part_cents must be positive"))
	}
	if c.Pricing.CardFeePct < 0 || c.Pricing.CardFeePct >= 1 {
		errs = append(errs, fmt.Errorf("pricing.card_fee_pct must be in [0, 1)"))
	}
	if c.Pricing.PixFeePct < 0 || c.Pricing.PixFeePct >= 1 {
		errs = append(errs, fmt.Errorf("pricing.pix_fee_pct must be in [0, 1)"))
	}
	if c.FX.FallbackRate <= 0 {
		errs = append(errs, fmt.Errorf("fx.fallback_rate must be positive"))
	}
	if c.Poller.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poller.interval must be positive"))
	}
	if c.Poller.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("poller.max_attempts must be positive"))
	}
	if c.Poller.TrackerTTL <= 0 {
		errs = append(errs, fmt.Errorf("poller.tracker_ttl must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Gateways.UseMocks {
			errs = append(errs, fmt.Errorf("gateways.use_mocks must be false in production"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit_per_min", 120)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "leadpay")
	v.SetDefault("database.database", "leadpay")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Pricing defaults
	v.SetDefault("pricing.card_fee_pct", 0.039)
	v.SetDefault("pricing.card_fee_fixed_cents", 30)
	v.SetDefault("pricing.fx_margin", 0.04)
	v.SetDefault("pricing.pix_fee_pct", 0.018)
	v.SetDefault("pricing.net_part_cents", 199900)
	v.SetDefault("pricing.zelle_recipient", "payments@leadpay.example")

	// FX defaults
	v.SetDefault("fx.base_url", "https://fx.leadpay.example")
	v.SetDefault("fx.fallback_rate", 5.40)
	v.SetDefault("fx.max_attempts", 3)
	v.SetDefault("fx.retry_delay", "500ms")

	// Poller defaults
	v.SetDefault("poller.interval", "10s")
	v.SetDefault("poller.max_attempts", 30)
	v.SetDefault("poller.soft_retries", 1)
	v.SetDefault("poller.tracker_ttl", "1h")

	// Gateway defaults
	v.SetDefault("gateways.timeout", "10s")
	v.SetDefault("gateways.use_mocks", true)

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "1s")
	v.SetDefault("worker.sweep_interval", "30s")
	v.SetDefault("worker.consumer_group", "attempt-reconcilers")
	v.SetDefault("worker.lock_ttl", "30s")
	v.SetDefault("worker.reclaim_min_idle", "2m")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "leadpay-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
