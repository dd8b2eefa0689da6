package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	StaticDir string `env:"STATIC_DIR" default:"public"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	SeedTables int `env:"SEED_TABLES" default:"6"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"256"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"32"`
	MaxMessageBytes         int64   `env:"WS_MAX_MESSAGE_BYTES" default:"4194304"` // 4 MiB, histories grow all day
	UpgradeRate             float64 `env:"WS_UPGRADE_RATE" default:"5"`
	UpgradeBurst            int     `env:"WS_UPGRADE_BURST" default:"20"`
	AllowedOrigins          string  `env:"ALLOWED_ORIGINS"` // comma separated, "*" allows any

	SyncStateOnConnect    bool `env:"SYNC_STATE_ON_CONNECT" default:"false"`
	BroadcastTableUpdates bool `env:"BROADCAST_TABLE_UPDATES" default:"false"`

	RedisURL           string `env:"REDIS_URL"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" default:"tablehub"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Origins returns the extra WebSocket origins allowed besides the server's own host.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// MirrorEnabled reports whether outbound events are published to Redis.
func (c *Config) MirrorEnabled() bool {
	return c.RedisURL != ""
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	if !slices.Contains([]string{"text", "json"}, cfg.LogFormat) {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.SeedTables < 0 {
		return errors.New("SEED_TABLES must not be negative")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.MaxConnectionsPerIP < 1 {
		return errors.New("MAX_CONNECTIONS_PER_IP must be at least 1")
	}
	if cfg.MaxConnectionsPerIP > cfg.MaxWebSocketConnections {
		return fmt.Errorf("MAX_CONNECTIONS_PER_IP (%d) must not exceed MAX_WEBSOCKET_CONNECTIONS (%d)", cfg.MaxConnectionsPerIP, cfg.MaxWebSocketConnections)
	}
	if cfg.MaxMessageBytes < 1024 {
		return errors.New("WS_MAX_MESSAGE_BYTES must be at least 1024")
	}
	if cfg.UpgradeRate <= 0 {
		return errors.New("WS_UPGRADE_RATE must be positive")
	}
	if cfg.UpgradeBurst < 1 {
		return errors.New("WS_UPGRADE_BURST must be at least 1")
	}

	if cfg.RedisURL != "" && cfg.RedisChannelPrefix == "" {
		return errors.New("REDIS_CHANNEL_PREFIX is required when REDIS_URL is set")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}
