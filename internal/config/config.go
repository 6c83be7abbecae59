package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the daemon.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Remote      RemoteConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Cache       CacheConfig
	Retry       RetryConfig
	Sync        SyncConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RemoteConfig points at the remote task store.
type RemoteConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// CacheConfig locates the durable local store.
type CacheConfig struct {
	Path string
}

// RetryConfig shapes the backoff schedule for remote propagation.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// SyncConfig drives the scheduled pending-queue drain.
type SyncConfig struct {
	Interval        time.Duration
	MonitorInterval time.Duration
	SessionTTL      time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the daemon can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "brainbow-syncd"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "127.0.0.1"),
			Port:         getString("SERVER_PORT", "8484"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Remote: RemoteConfig{
			URL:             os.Getenv("REMOTE_URL"),
			Host:            getString("REMOTE_HOST", "localhost"),
			Port:            getString("REMOTE_PORT", "5432"),
			Name:            getString("REMOTE_DB", "brainbow"),
			User:            getString("REMOTE_USER", "brainbow"),
			Password:        os.Getenv("REMOTE_PASSWORD"),
			MaxOpenConns:    getInt("REMOTE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("REMOTE_MAX_IDLE_CONNS", 4),
			MaxConnLifetime: getDuration("REMOTE_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("REMOTE_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "brainbow-syncd"),
		},
		Cache: CacheConfig{
			Path: getString("CACHE_PATH", "./data/cache.db"),
		},
		Retry: RetryConfig{
			MaxRetries: getInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:  getDuration("RETRY_BASE_DELAY", time.Second),
			MaxDelay:   getDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
		Sync: SyncConfig{
			Interval:        getDuration("SYNC_INTERVAL_SECONDS", 30*time.Second),
			MonitorInterval: getDuration("MONITOR_INTERVAL_SECONDS", 10*time.Second),
			SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Remote.URL == "" {
		cfg.Remote.URL = buildRemoteURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildRemoteURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Remote.User,
		cfg.Remote.Password,
		cfg.Remote.Host,
		cfg.Remote.Port,
		cfg.Remote.Name,
		cfg.Remote.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
