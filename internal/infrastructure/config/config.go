package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	HotelAPI   HotelAPIConfig   `mapstructure:"hotel_api"`
	Session    SessionConfig    `mapstructure:"session"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
	// RateLimit is requests per second per client address, 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// TrustedProxies are addresses or CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	SwaggerURL     string   `mapstructure:"swagger_url"`
}

type DatabaseConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	Database           string        `mapstructure:"database"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConnections int           `mapstructure:"max_open_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
	ConnMaxLife        time.Duration `mapstructure:"conn_max_life"`
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RabbitMQConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	Exchange        string        `mapstructure:"exchange"`
	PublishAttempts int           `mapstructure:"publish_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

type HotelAPIConfig struct {
	BaseURL        string               `mapstructure:"base_url"`
	Token          string               `mapstructure:"token"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RateLimit      float64              `mapstructure:"rate_limit"`
	BurstLimit     int                  `mapstructure:"burst_limit"`
	MaxRetries     int                  `mapstructure:"max_retries"`
	RetryInterval  time.Duration        `mapstructure:"retry_interval"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

type SessionConfig struct {
	Timezone             string        `mapstructure:"timezone"`
	MinimumStayNights    int           `mapstructure:"minimum_stay_nights"`
	TTL                  time.Duration `mapstructure:"ttl"`
	LockTTL              time.Duration `mapstructure:"lock_ttl"`
	OperationTimeout     time.Duration `mapstructure:"operation_timeout"`
	AvailabilityCacheTTL time.Duration `mapstructure:"availability_cache_ttl"`
}

type ReconcilerConfig struct {
	IntervalInMinutes uint64        `mapstructure:"interval_in_minutes"`
	BatchSize         int           `mapstructure:"batch_size"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	RunOnStart        bool          `mapstructure:"run_on_start"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type TracingConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"pretty_print"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("booking.server.host", "0.0.0.0")
	v.SetDefault("booking.server.port", 8080)
	v.SetDefault("booking.server.read_timeout", 15*time.Second)
	v.SetDefault("booking.server.write_timeout", 45*time.Second)
	v.SetDefault("booking.server.idle_timeout", 60*time.Second)
	v.SetDefault("booking.server.enable_cors", true)
	v.SetDefault("booking.server.rate_limit", 20)
	v.SetDefault("booking.server.rate_burst", 40)
	v.SetDefault("booking.server.trusted_proxies", []string{})

	v.SetDefault("booking.database.port", 5432)
	v.SetDefault("booking.database.ssl_mode", "disable")
	v.SetDefault("booking.database.max_open_connections", 20)
	v.SetDefault("booking.database.max_idle_connections", 5)
	v.SetDefault("booking.database.conn_max_life", time.Hour)

	v.SetDefault("booking.redis.host", "localhost")
	v.SetDefault("booking.redis.port", 6379)
	v.SetDefault("booking.redis.pool_size", 50)
	v.SetDefault("booking.redis.dial_timeout", 5*time.Second)
	v.SetDefault("booking.redis.read_timeout", 3*time.Second)
	v.SetDefault("booking.redis.write_timeout", 3*time.Second)

	v.SetDefault("booking.rabbitmq.exchange", "booking.events")
	v.SetDefault("booking.rabbitmq.publish_attempts", 3)
	v.SetDefault("booking.rabbitmq.retry_delay", 200*time.Millisecond)

	v.SetDefault("booking.hotel_api.base_url", "http://localhost:3001/api")
	v.SetDefault("booking.hotel_api.token", "")
	v.SetDefault("booking.hotel_api.timeout", 30*time.Second)
	v.SetDefault("booking.hotel_api.rate_limit", 10)
	v.SetDefault("booking.hotel_api.burst_limit", 20)
	v.SetDefault("booking.hotel_api.max_retries", 2)
	v.SetDefault("booking.hotel_api.retry_interval", 500*time.Millisecond)
	v.SetDefault("booking.hotel_api.circuit_breaker.max_requests", 1)
	v.SetDefault("booking.hotel_api.circuit_breaker.interval", time.Minute)
	v.SetDefault("booking.hotel_api.circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("booking.hotel_api.circuit_breaker.consecutive_failures", 5)

	v.SetDefault("booking.session.timezone", "UTC")
	v.SetDefault("booking.session.minimum_stay_nights", 1)
	v.SetDefault("booking.session.ttl", 2*time.Hour)
	v.SetDefault("booking.session.lock_ttl", time.Minute)
	v.SetDefault("booking.session.operation_timeout", 30*time.Second)
	v.SetDefault("booking.session.availability_cache_ttl", time.Minute)

	v.SetDefault("booking.reconciler.interval_in_minutes", 5)
	v.SetDefault("booking.reconciler.batch_size", 100)
	v.SetDefault("booking.reconciler.call_timeout", 30*time.Second)

	v.SetDefault("booking.logging.level", "info")
	v.SetDefault("booking.tracing.enabled", false)
	v.SetDefault("booking.tracing.pretty_print", false)
}

func LoadConfig() (*Config, error) {
	var err error
	if err = gotenv.Load("../.env"); err != nil {
		_ = gotenv.Load()
	}
	return LoadConfigFrom("..", ".")
}

// LoadConfigFrom reads config.yaml from the first path that has one. Every key can be
// overridden from the environment, e.g. BOOKING_HOTEL_API_BASE_URL.
func LoadConfigFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unmarshal goes through AllSettings, which resolves env overrides per key.
	var root struct {
		Booking Config `mapstructure:"booking"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config := root.Booking

	expandConfigEnvVars(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func expandConfigEnvVars(config *Config) {
	config.Server.Host = os.ExpandEnv(config.Server.Host)

	config.Database.Host = os.ExpandEnv(config.Database.Host)
	config.Database.Username = os.ExpandEnv(config.Database.Username)
	config.Database.Password = os.ExpandEnv(config.Database.Password)
	config.Database.Database = os.ExpandEnv(config.Database.Database)
	config.Database.SSLMode = os.ExpandEnv(config.Database.SSLMode)

	config.Redis.Host = os.ExpandEnv(config.Redis.Host)
	config.Redis.Password = os.ExpandEnv(config.Redis.Password)

	config.RabbitMQ.URL = os.ExpandEnv(config.RabbitMQ.URL)

	config.HotelAPI.BaseURL = os.ExpandEnv(config.HotelAPI.BaseURL)
	config.HotelAPI.Token = os.ExpandEnv(config.HotelAPI.Token)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *SessionConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) Validate() error {
	if c.HotelAPI.BaseURL == "" {
		return fmt.Errorf("hotel API base URL is required")
	}

	if !strings.HasPrefix(c.HotelAPI.BaseURL, "http://") && !strings.HasPrefix(c.HotelAPI.BaseURL, "https://") {
		c.HotelAPI.BaseURL = "https://" + c.HotelAPI.BaseURL
	}
	c.HotelAPI.BaseURL = strings.TrimSuffix(c.HotelAPI.BaseURL, "/")

	if c.HotelAPI.Timeout <= 0 {
		return fmt.Errorf("hotel API timeout must be positive")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq URL is required when event publishing is enabled")
	}

	if _, err := c.Session.Location(); err != nil {
		return fmt.Errorf("invalid session timezone %q: %w", c.Session.Timezone, err)
	}

	if c.Session.MinimumStayNights < 1 {
		return fmt.Errorf("minimum stay must be at least one night, got %d", c.Session.MinimumStayNights)
	}

	if c.Session.TTL <= 0 || c.Session.LockTTL <= 0 || c.Session.OperationTimeout <= 0 {
		return fmt.Errorf("session ttl, lock ttl and operation timeout must be positive")
	}

	if c.Session.LockTTL < 2*c.Session.OperationTimeout {
		return fmt.Errorf("session lock ttl (%s) must cover twice the operation timeout (%s)", c.Session.LockTTL, c.Session.OperationTimeout)
	}

	if c.Reconciler.IntervalInMinutes == 0 {
		return fmt.Errorf("reconciler interval must be at least one minute")
	}

	if c.Reconciler.BatchSize <= 0 {
		return fmt.Errorf("invalid reconciler batch size: %d", c.Reconciler.BatchSize)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("invalid trusted proxy %q: expected an address or CIDR range", proxy)
		}
	}
	return nil
}

func validProxy(entry string) bool {
	entry = strings.TrimSpace(entry)
	if _, err := netip.ParsePrefix(entry); err == nil {
		return true
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}
