// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dlock-service/pkg/dlock"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lock      LockConfig      `mapstructure:"lock"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Retention RetentionConfig `mapstructure:"retention"`
	Client    ClientConfig    `mapstructure:"client"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"` // development, staging, production
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RedisConfig holds connection settings for the lock store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port pair for go-redis.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LockConfig holds distributed lock behavior settings.
type LockConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	DefaultWait    time.Duration `mapstructure:"default_wait"`
	RenewalEnabled bool          `mapstructure:"renewal_enabled"`
	RenewalPeriod  time.Duration `mapstructure:"renewal_period"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	TokenStrategy  string        `mapstructure:"token_strategy"` // uuid, machine
	MachineID      string        `mapstructure:"machine_id"`     // empty uses the hostname
}

// Dlock converts the section into the lock package's options.
func (c *LockConfig) Dlock() dlock.Config {
	return dlock.Config{
		PollInterval:   c.PollInterval,
		DefaultWait:    c.DefaultWait,
		RenewalEnabled: c.RenewalEnabled,
		RenewalPeriod:  c.RenewalPeriod,
		KeyPrefix:      c.KeyPrefix,
		TokenStrategy:  dlock.TokenStrategy(c.TokenStrategy),
		MachineID:      c.MachineID,
	}
}

// AuditConfig holds the lock event log database settings.
type AuditConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c *AuditConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RetentionConfig holds the event purge job settings.
type RetentionConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	MaxAge    time.Duration `mapstructure:"max_age"`
	Timeout   time.Duration `mapstructure:"timeout"`
	OnStartup bool          `mapstructure:"on_startup"`
}

// ClientConfig holds settings for the lock service HTTP client (dlockctl).
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
	CB      CBConfig      `mapstructure:"circuit_breaker"`
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// CBConfig holds circuit breaker settings.
type CBConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch dlock.TokenStrategy(c.Lock.TokenStrategy) {
	case dlock.TokenUUID, dlock.TokenMachine:
	default:
		return fmt.Errorf("lock.token_strategy: unknown strategy %q", c.Lock.TokenStrategy)
	}
	if c.Retention.Enabled && !c.Audit.Enabled {
		return fmt.Errorf("retention.enabled requires audit.enabled")
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dlock-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Lock defaults
	v.SetDefault("lock.poll_interval", dlock.DefaultPollInterval.String())
	v.SetDefault("lock.default_wait", dlock.DefaultWait.String())
	v.SetDefault("lock.renewal_enabled", true)
	v.SetDefault("lock.renewal_period", dlock.DefaultRenewalPeriod.String())
	v.SetDefault("lock.key_prefix", "dlock")
	v.SetDefault("lock.token_strategy", string(dlock.TokenUUID))
	v.SetDefault("lock.machine_id", "")

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.host", "localhost")
	v.SetDefault("audit.port", 5432)
	v.SetDefault("audit.name", "dlock")
	v.SetDefault("audit.user", "app")
	v.SetDefault("audit.password", "secret")
	v.SetDefault("audit.ssl_mode", "disable")
	v.SetDefault("audit.max_open_conns", 10)
	v.SetDefault("audit.max_idle_conns", 2)
	v.SetDefault("audit.max_lifetime", "5m")

	// Retention defaults
	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.interval", "1h")
	v.SetDefault("retention.max_age", "168h")
	v.SetDefault("retention.timeout", "30s")
	v.SetDefault("retention.on_startup", false)

	// Client defaults
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "10s")
	v.SetDefault("client.retry.max_attempts", 3)
	v.SetDefault("client.retry.wait_time", "200ms")
	v.SetDefault("client.retry.max_wait_time", "2s")
	v.SetDefault("client.circuit_breaker.max_requests", 3)
	v.SetDefault("client.circuit_breaker.interval", "60s")
	v.SetDefault("client.circuit_breaker.timeout", "30s")
	v.SetDefault("client.circuit_breaker.failure_ratio", 0.5)
}
