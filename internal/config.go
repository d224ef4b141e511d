package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security"`
	Stock         StockConfig         `mapstructure:"stock"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Order         OrderConfig         `mapstructure:"order"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SecurityConfig struct {
	// JWTPublicKey is a base64 encoded PEM public key used to verify tokens minted by the chat transport.
	JWTPublicKey string `mapstructure:"jwt_public_key"`
	Issuer       string `mapstructure:"issuer"`
}

type StockConfig struct {
	UpdateChannel       string        `mapstructure:"update_channel"`
	PublishTimeout      time.Duration `mapstructure:"publish_timeout"`
	SubscribeMaxRetries int           `mapstructure:"subscribe_max_retries"`
	SubscribeBackoff    time.Duration `mapstructure:"subscribe_backoff"`
	LowStockThreshold   int           `mapstructure:"low_stock_threshold"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type OrderConfig struct {
	CancelOnPaymentFailure bool `mapstructure:"cancel_on_payment_failure"`
}

type NotificationConfig struct {
	TransportURL      string        `mapstructure:"transport_url"`
	TransportToken    string        `mapstructure:"transport_token"`
	TransportWorkers  int           `mapstructure:"transport_workers"`
	TransportQueue    int           `mapstructure:"transport_queue"`
	DeliveryTimeout   time.Duration `mapstructure:"delivery_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	ReadStatusTTL     time.Duration `mapstructure:"read_status_ttl"`
	ReadStatusBackend string        `mapstructure:"read_status_backend"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfigFromEnv builds the config from plain environment variables for container deployments.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			JWTPublicKey: getEnv("SECURITY_JWT_PUBLIC_KEY", ""),
			Issuer:       getEnv("SECURITY_ISSUER", ""),
		},
		Stock: StockConfig{
			UpdateChannel:       getEnv("STOCK_UPDATE_CHANNEL", ""),
			PublishTimeout:      getEnvAsDuration("STOCK_PUBLISH_TIMEOUT", 0),
			SubscribeMaxRetries: getEnvAsInt("STOCK_SUBSCRIBE_MAX_RETRIES", 0),
			SubscribeBackoff:    getEnvAsDuration("STOCK_SUBSCRIBE_BACKOFF", 0),
			LowStockThreshold:   getEnvAsInt("STOCK_LOW_STOCK_THRESHOLD", 0),
		},
		Catalog: CatalogConfig{
			CacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 0),
		},
		Order: OrderConfig{
			CancelOnPaymentFailure: getEnvAsBool("ORDER_CANCEL_ON_PAYMENT_FAILURE", true),
		},
		Notification: NotificationConfig{
			TransportURL:      getEnv("NOTIFICATION_TRANSPORT_URL", ""),
			TransportToken:    getEnv("NOTIFICATION_TRANSPORT_TOKEN", ""),
			TransportWorkers:  getEnvAsInt("NOTIFICATION_TRANSPORT_WORKERS", 0),
			TransportQueue:    getEnvAsInt("NOTIFICATION_TRANSPORT_QUEUE", 0),
			DeliveryTimeout:   getEnvAsDuration("NOTIFICATION_DELIVERY_TIMEOUT", 0),
			MaxAttempts:       getEnvAsInt("NOTIFICATION_MAX_ATTEMPTS", 0),
			SweepInterval:     getEnvAsDuration("NOTIFICATION_SWEEP_INTERVAL", 0),
			ReadStatusTTL:     getEnvAsDuration("NOTIFICATION_READ_STATUS_TTL", 0),
			ReadStatusBackend: getEnv("NOTIFICATION_READ_STATUS_BACKEND", "redis"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("OBSERVABILITY_METRICS_ENABLED", true),
				Path:    getEnv("OBSERVABILITY_METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("OBSERVABILITY_LOGGING_LEVEL", "info"),
				Format: getEnv("OBSERVABILITY_LOGGING_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	if c.Stock.UpdateChannel == "" {
		c.Stock.UpdateChannel = "stock_updates"
	}
	if c.Stock.PublishTimeout <= 0 {
		c.Stock.PublishTimeout = 500 * time.Millisecond
	}
	if c.Stock.SubscribeMaxRetries <= 0 {
		c.Stock.SubscribeMaxRetries = 3
	}
	if c.Stock.SubscribeBackoff <= 0 {
		c.Stock.SubscribeBackoff = time.Second
	}
	if c.Stock.LowStockThreshold <= 0 {
		c.Stock.LowStockThreshold = 5
	}
	if c.Catalog.CacheTTL <= 0 {
		c.Catalog.CacheTTL = 10 * time.Minute
	}
	if c.Notification.DeliveryTimeout <= 0 {
		c.Notification.DeliveryTimeout = 5 * time.Second
	}
	if c.Notification.TransportWorkers <= 0 {
		c.Notification.TransportWorkers = 4
	}
	if c.Notification.TransportQueue <= 0 {
		c.Notification.TransportQueue = 100
	}
	if c.Notification.MaxAttempts <= 0 {
		c.Notification.MaxAttempts = 3
	}
	if c.Notification.SweepInterval <= 0 {
		c.Notification.SweepInterval = time.Minute
	}
	if c.Notification.ReadStatusTTL <= 0 {
		c.Notification.ReadStatusTTL = 24 * time.Hour
	}
	if c.Notification.ReadStatusBackend == "" {
		c.Notification.ReadStatusBackend = "memory"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if c.JWTPublicKey == "" {
		return nil
	}
	if _, err := c.GetPublicKey(); err != nil {
		return fmt.Errorf("invalid JWT public key: %w", err)
	}
	return nil
}

func (c *SecurityConfig) GetPublicKey() (*rsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}

func (c *NotificationConfig) Validate() error {
	if c.TransportURL != "" {
		if _, err := url.ParseRequestURI(c.TransportURL); err != nil {
			return fmt.Errorf("invalid transport_url: %w", err)
		}
	}
	switch c.ReadStatusBackend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown read_status_backend %q", c.ReadStatusBackend)
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
