package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Cache    CacheConfig
	Breakers map[string]BreakerConfig
	Bus      BusConfig
	WS       WSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// StoreConfig holds document-store (PostgreSQL) connection settings.
type StoreConfig struct {
	Host         string        `mapstructure:"STORE_HOST"`
	Port         int           `mapstructure:"STORE_PORT"`
	User         string        `mapstructure:"STORE_USER"`
	Password     string        `mapstructure:"STORE_PASSWORD"`
	DBName       string        `mapstructure:"STORE_DB"`
	SSLMode      string        `mapstructure:"STORE_SSLMODE"`
	MaxConns     int32         `mapstructure:"STORE_MAX_CONNS"`
	MinConns     int32         `mapstructure:"STORE_MIN_CONNS"`
	QueryTimeout time.Duration `mapstructure:"STORE_QUERY_TIMEOUT"`
}

// CacheConfig holds fallback-store (Redis) connection settings.
type CacheConfig struct {
	Host     string        `mapstructure:"CACHE_HOST"`
	Port     int           `mapstructure:"CACHE_PORT"`
	Password string        `mapstructure:"CACHE_PASSWORD"`
	DB       int           `mapstructure:"CACHE_DB"`
	PoolSize int           `mapstructure:"CACHE_POOL_SIZE"`
	TTL      time.Duration `mapstructure:"CACHE_TTL"`
}

// BreakerConfig holds per-source circuit breaker tuning. One instance
// exists per breaker name (tripService, baggageService, ticketService).
type BreakerConfig struct {
	SlidingWindowSize    int
	MinimumNumberOfCalls int
	FailureRateThreshold float64
	WaitDuration         time.Duration
	HalfOpenPermitted    int
}

// BusConfig holds event bus settings.
type BusConfig struct {
	QueueSize int `mapstructure:"BUS_QUEUE_SIZE"`
}

// WSConfig holds websocket frame buffer settings.
type WSConfig struct {
	ReadBuffer  int `mapstructure:"WS_READ_BUFFER"`
	WriteBuffer int `mapstructure:"WS_WRITE_BUFFER"`
}

// BreakerNames lists the three per-source breakers in wiring order.
var BreakerNames = []string{"tripService", "baggageService", "ticketService"}

// DSN returns the PostgreSQL connection string.
func (s *StoreConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.DBName, s.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (c *CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("STORE_HOST", "localhost")
	viper.SetDefault("STORE_PORT", 5432)
	viper.SetDefault("STORE_USER", "pnrview")
	viper.SetDefault("STORE_PASSWORD", "pnrview_secret")
	viper.SetDefault("STORE_DB", "pnrview_db")
	viper.SetDefault("STORE_SSLMODE", "disable")
	viper.SetDefault("STORE_MAX_CONNS", 50)
	viper.SetDefault("STORE_MIN_CONNS", 10)
	viper.SetDefault("STORE_QUERY_TIMEOUT", "5s")

	viper.SetDefault("CACHE_HOST", "localhost")
	viper.SetDefault("CACHE_PORT", 6379)
	viper.SetDefault("CACHE_PASSWORD", "")
	viper.SetDefault("CACHE_DB", 0)
	viper.SetDefault("CACHE_POOL_SIZE", 100)
	viper.SetDefault("CACHE_TTL", "10m")

	viper.SetDefault("BUS_QUEUE_SIZE", 64)
	viper.SetDefault("WS_READ_BUFFER", 1024)
	viper.SetDefault("WS_WRITE_BUFFER", 1024)

	for _, name := range BreakerNames {
		prefix := breakerEnvPrefix(name)
		viper.SetDefault(prefix+"_SLIDING_WINDOW_SIZE", 100)
		viper.SetDefault(prefix+"_MIN_CALLS", 10)
		viper.SetDefault(prefix+"_FAILURE_RATE_THRESHOLD", 10.0)
		viper.SetDefault(prefix+"_WAIT_DURATION", "10s")
		viper.SetDefault(prefix+"_HALF_OPEN_PERMITTED", 3)
	}

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by the container runtime are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         viper.GetString("SERVER_HOST"),
		Port:         viper.GetInt("SERVER_PORT"),
		ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Document store ──────────────────────────────────
	cfg.Store = StoreConfig{
		Host:         viper.GetString("STORE_HOST"),
		Port:         viper.GetInt("STORE_PORT"),
		User:         viper.GetString("STORE_USER"),
		Password:     viper.GetString("STORE_PASSWORD"),
		DBName:       viper.GetString("STORE_DB"),
		SSLMode:      viper.GetString("STORE_SSLMODE"),
		MaxConns:     viper.GetInt32("STORE_MAX_CONNS"),
		MinConns:     viper.GetInt32("STORE_MIN_CONNS"),
		QueryTimeout: viper.GetDuration("STORE_QUERY_TIMEOUT"),
	}

	// ── Fallback store ──────────────────────────────────
	cfg.Cache = CacheConfig{
		Host:     viper.GetString("CACHE_HOST"),
		Port:     viper.GetInt("CACHE_PORT"),
		Password: viper.GetString("CACHE_PASSWORD"),
		DB:       viper.GetInt("CACHE_DB"),
		PoolSize: viper.GetInt("CACHE_POOL_SIZE"),
		TTL:      viper.GetDuration("CACHE_TTL"),
	}

	// ── Circuit breakers ────────────────────────────────
	cfg.Breakers = make(map[string]BreakerConfig, len(BreakerNames))
	for _, name := range BreakerNames {
		prefix := breakerEnvPrefix(name)
		cfg.Breakers[name] = BreakerConfig{
			SlidingWindowSize:    viper.GetInt(prefix + "_SLIDING_WINDOW_SIZE"),
			MinimumNumberOfCalls: viper.GetInt(prefix + "_MIN_CALLS"),
			FailureRateThreshold: viper.GetFloat64(prefix + "_FAILURE_RATE_THRESHOLD"),
			WaitDuration:         viper.GetDuration(prefix + "_WAIT_DURATION"),
			HalfOpenPermitted:    viper.GetInt(prefix + "_HALF_OPEN_PERMITTED"),
		}
	}

	// ── Bus / websocket ─────────────────────────────────
	cfg.Bus = BusConfig{QueueSize: viper.GetInt("BUS_QUEUE_SIZE")}
	cfg.WS = WSConfig{
		ReadBuffer:  viper.GetInt("WS_READ_BUFFER"),
		WriteBuffer: viper.GetInt("WS_WRITE_BUFFER"),
	}

	return cfg, nil
}

// breakerEnvPrefix maps a breaker name to its env var prefix,
// e.g. tripService → CB_TRIPSERVICE.
func breakerEnvPrefix(name string) string {
	return "CB_" + strings.ToUpper(name)
}
