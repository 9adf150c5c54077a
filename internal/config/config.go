package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Tail      TailConfig      `yaml:"tail"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MetricsPort     int           `yaml:"metricsPort"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

type DatabaseConfig struct {
	Driver  string        `yaml:"driver"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	LevelDB LevelDBConfig `yaml:"leveldb"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type LevelDBConfig struct {
	Path        string `yaml:"path"`
	CacheSizeMB int    `yaml:"cacheSizeMB"`
}

// TailConfig bounds query windows.
type TailConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxLimit     int `yaml:"maxLimit"`
}

// AuthConfig guards the /v1 API. Empty values disable the check.
type AuthConfig struct {
	BearerToken string `yaml:"bearerToken"`
	HMACSecret  string `yaml:"hmacSecret"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	TrustProxy        bool `yaml:"trustProxy"`
	MaxClients        int  `yaml:"maxClients"`
}

// NotifyConfig forwards severe entries to Slack. Without a bot token,
// notifications are only logged.
type NotifyConfig struct {
	Enabled  bool        `yaml:"enabled"`
	MinLevel string      `yaml:"minLevel"`
	Slack    SlackConfig `yaml:"slack"`
}

type SlackConfig struct {
	BotToken       string            `yaml:"botToken"`
	DefaultChannel string            `yaml:"defaultChannel"`
	Channels       map[string]string `yaml:"channels"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			MaxBodyBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:              "/data/logtail.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
			LevelDB: LevelDBConfig{
				Path: "/data/logtail.ldb",
			},
		},
		Tail: TailConfig{
			DefaultLimit: 50,
			MaxLimit:     1000,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 600,
			MaxClients:        10000,
		},
		Notify: NotifyConfig{
			MinLevel: "error",
			Slack: SlackConfig{
				DefaultChannel: "#logtail-alerts",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
